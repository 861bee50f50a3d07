package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

// (user_id, payment_id) の一意制約に任せる。
// 同時に来た2本目はON CONFLICT DO NOTHINGで0件になり、読み直して同じ行を返す
func (r *PaymentGormRepository) GetOrCreate(ctx context.Context, payment model.Payment) (model.Payment, bool, error) {
	p := payment
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "payment_id"}},
			DoNothing: true,
		}).
		Create(&p)
	if res.Error != nil {
		return model.Payment{}, false, res.Error
	}
	if res.RowsAffected == 1 {
		return p, true, nil
	}

	var existing model.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND payment_id = ?", payment.UserID, payment.PaymentID).
		First(&existing).Error
	if err != nil {
		return model.Payment{}, false, err
	}
	return existing, false, nil
}

func (r *PaymentGormRepository) FindByID(ctx context.Context, id int64) (model.Payment, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *PaymentGormRepository) FindLatestByPaymentIDAndUser(ctx context.Context, paymentID string, userID int64) (model.Payment, error) {
	return r.first(r.db.WithContext(ctx).
		Where("payment_id = ? AND user_id = ?", paymentID, userID).
		Order("created_at desc").Order("id desc"))
}

func (r *PaymentGormRepository) FindLatestByPaymentID(ctx context.Context, paymentID string) (model.Payment, error) {
	return r.first(r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at desc").Order("id desc"))
}

func (r *PaymentGormRepository) first(q *gorm.DB) (model.Payment, error) {
	var p model.Payment
	err := q.First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}
