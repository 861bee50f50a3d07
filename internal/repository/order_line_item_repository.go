package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type OrderLineItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderLineItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderLineItem, error)
	//商品とバリエーション付き（レシート用）
	ListDetailedByOrderID(ctx context.Context, orderID int64) ([]model.OrderLineItem, error)
	//未紐づけ（または同じ決済）の明細をpaymentRefIDに紐づけてordered=trueにする
	RelinkPayment(ctx context.Context, orderID int64, paymentRefID int64) error
}
