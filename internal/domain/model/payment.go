package model

import "time"

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
)

// (user_id, payment_id) は一意。同じ取引コードのコールバックは同じ行になる
type Payment struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64         `gorm:"not null;uniqueIndex:idx_payments_user_payment" json:"user_id"`
	PaymentID     string        `gorm:"type:varchar(100);not null;uniqueIndex:idx_payments_user_payment;index" json:"payment_id"`
	PaymentMethod string        `gorm:"type:varchar(100);not null" json:"payment_method"`
	AmountPaid    int64         `gorm:"not null" json:"amount_paid"`
	Status        PaymentStatus `gorm:"type:varchar(100);not null" json:"status"`
	CreatedAt     time.Time     `gorm:"not null;autoCreateTime;index" json:"created_at"`
}
