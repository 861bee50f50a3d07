package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type InventoryRepository interface {
	// stock = stock - qty。減算後の在庫を返す（マイナスもあり得る）
	Decrement(ctx context.Context, productID int64, qty int64) (int64, error)

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
