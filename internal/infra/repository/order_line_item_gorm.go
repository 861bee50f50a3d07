package repository

import (
	"context"

	"marketplace/internal/domain/model"

	"gorm.io/gorm"
)

type OrderLineItemGormRepository struct {
	db *gorm.DB
}

func NewOrderLineItemGormRepository(db *gorm.DB) *OrderLineItemGormRepository {
	return &OrderLineItemGormRepository{db: db}
}

func (r *OrderLineItemGormRepository) CreateBulk(ctx context.Context, orderID int64, items []model.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	//商品・バリエーション本体は触らず、中間テーブルだけ作る
	return r.db.WithContext(ctx).
		Omit("Product", "Variations.*").
		Create(&items).Error
}

func (r *OrderLineItemGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderLineItem, error) {
	var items []model.OrderLineItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id asc").Find(&items).Error
	if err != nil {
		return []model.OrderLineItem{}, err
	}
	return items, nil
}

func (r *OrderLineItemGormRepository) ListDetailedByOrderID(ctx context.Context, orderID int64) ([]model.OrderLineItem, error) {
	var items []model.OrderLineItem
	err := r.db.WithContext(ctx).
		//削除済み商品もレシートには出す
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Variations").
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.OrderLineItem{}, err
	}
	return items, nil
}

func (r *OrderLineItemGormRepository) RelinkPayment(ctx context.Context, orderID int64, paymentRefID int64) error {
	//別の決済を指している明細は書き換えない
	return r.db.WithContext(ctx).
		Model(&model.OrderLineItem{}).
		Where("order_id = ? AND (payment_ref_id IS NULL OR payment_ref_id = ?)", orderID, paymentRefID).
		Updates(map[string]interface{}{
			"payment_ref_id": paymentRefID,
			"ordered":        true,
		}).Error
}
