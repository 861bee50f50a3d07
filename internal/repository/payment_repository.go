package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type PaymentRepository interface {
	//(user_id, payment_id)で取得、無ければ作成。作ったらcreated=true
	GetOrCreate(ctx context.Context, payment model.Payment) (model.Payment, bool, error)
	FindByID(ctx context.Context, id int64) (model.Payment, error)

	//新しい順で1件
	FindLatestByPaymentIDAndUser(ctx context.Context, paymentID string, userID int64) (model.Payment, error)
	FindLatestByPaymentID(ctx context.Context, paymentID string) (model.Payment, error)
}
