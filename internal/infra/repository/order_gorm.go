package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&order).Error; err != nil {
		return 0, err
	}
	return order.ID, nil
}

func (r *OrderGormRepository) AssignOrderNumber(ctx context.Context, orderID int64, orderNumber string) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND order_number IS NULL", orderID).
		Update("order_number", orderNumber)

	if res.Error != nil {
		return res.Error
	}
	//存在しない or 採番済み
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) FindByIDForUser(ctx context.Context, orderID int64, userID int64) (model.Order, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ? AND user_id = ?", orderID, userID))
}

func (r *OrderGormRepository) LockByIDForUser(ctx context.Context, orderID int64, userID int64) (model.Order, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", orderID, userID))
}

func (r *OrderGormRepository) FindOrderedByNumber(ctx context.Context, orderNumber string) (model.Order, error) {
	return r.first(r.db.WithContext(ctx).Where("order_number = ? AND is_ordered = ?", orderNumber, true))
}

func (r *OrderGormRepository) first(q *gorm.DB) (model.Order, error) {
	var o model.Order
	err := q.First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) SaveGatewayRequest(ctx context.Context, orderID int64, transactionUUID string, totalAmount int64) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"gateway_transaction_uuid": transactionUUID,
			"gateway_total_amount":     totalAmount,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// fulfillment_stateのCAS。trueを返すのは最初の1回だけ
func (r *OrderGormRepository) ClaimMaterialization(ctx context.Context, orderID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND fulfillment_state = ?", orderID, model.FulfillmentStatePending).
		Update("fulfillment_state", model.FulfillmentStateMaterialized)

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *OrderGormRepository) LinkPayment(ctx context.Context, orderID int64, paymentRefID int64) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND (payment_ref_id IS NULL OR payment_ref_id = ?)", orderID, paymentRefID).
		Update("payment_ref_id", paymentRefID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	//0件なら「注文が無い」か「別の決済に紐付き済み」
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return repo.ErrNotFound
	}
	return repo.ErrAlreadyLinked
}

func (r *OrderGormRepository) MarkFulfilled(ctx context.Context, orderID int64) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"is_ordered": true,
			"status":     model.OrderStatusAccepted,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
