package repository

import (
	"context"

	"marketplace/internal/domain/model"

	"gorm.io/gorm"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// ACTIVEカートの明細を商品・バリエーション付きで返す
func (r *CartGormRepository) ListItemsByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	err := r.db.WithContext(ctx).
		Select("cart_items.*").
		Joins("join carts on carts.id = cart_items.cart_id").
		Where("carts.user_id = ? AND carts.status = ?", userID, model.CartStatusActive).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Variations").
		Order("cart_items.id asc").
		Find(&items).Error
	if err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

// ACTIVEカートの明細を全削除（バリエーションの中間テーブルも）
func (r *CartGormRepository) ClearByUserID(ctx context.Context, userID int64) error {
	activeCartIDs := r.db.Model(&model.Cart{}).
		Select("id").
		Where("user_id = ? AND status = ?", userID, model.CartStatusActive)
	itemIDs := r.db.Model(&model.CartItem{}).
		Select("id").
		Where("cart_id IN (?)", activeCartIDs)

	if err := r.db.WithContext(ctx).
		Exec("DELETE FROM cart_item_variations WHERE cart_item_id IN (?)", itemIDs).Error; err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Where("cart_id IN (?)", activeCartIDs).
		Delete(&model.CartItem{}).Error
}
