package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

// カートサブシステムの窓口（一覧とクリアだけ使う）
type CartRepository interface {
	//ACTIVEカートの明細（商品・バリエーション付き）
	ListItemsByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	ClearByUserID(ctx context.Context, userID int64) error
}
