package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusAccepted OrderStatus = "ACCEPTED"
)

// 明細を作ったかどうか（PENDING→MATERIALIZEDの一回だけ）
type FulfillmentState string

const (
	FulfillmentStatePending      FulfillmentState = "PENDING"
	FulfillmentStateMaterialized FulfillmentState = "MATERIALIZED"
)

type Order struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	// 日付+IDで採番。未採番はNULL
	OrderNumber *string `gorm:"type:varchar(32);uniqueIndex" json:"order_number"`

	FirstName    string `gorm:"type:varchar(50);not null" json:"first_name"`
	LastName     string `gorm:"type:varchar(50);not null" json:"last_name"`
	Phone        string `gorm:"type:varchar(15);not null" json:"phone"`
	Email        string `gorm:"type:varchar(100);not null" json:"email"`
	AddressLine1 string `gorm:"type:varchar(100);not null" json:"address_line_1"`
	AddressLine2 string `gorm:"type:varchar(100)" json:"address_line_2"`
	Country      string `gorm:"type:varchar(50);not null" json:"country"`
	State        string `gorm:"type:varchar(50);not null" json:"state"`
	City         string `gorm:"type:varchar(50);not null" json:"city"`
	OrderNote    string `gorm:"type:varchar(100)" json:"order_note"`
	IP           string `gorm:"type:varchar(45)" json:"-"`

	// 税込合計。古いデータはNULLのことがある
	OrderTotal decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"order_total"`
	Tax        decimal.Decimal     `gorm:"type:numeric(12,2);not null;default:0" json:"tax"`

	IsOrdered        bool             `gorm:"not null;default:false;index" json:"is_ordered"`
	PaymentRefID     *int64           `gorm:"index" json:"payment_ref_id"`
	Payment          *Payment         `gorm:"foreignKey:PaymentRefID" json:"payment,omitempty"`
	Status           OrderStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	FulfillmentState FulfillmentState `gorm:"type:varchar(20);not null;default:'PENDING'" json:"-"`

	// 決済画面へ送ったときの値（改ざんチェック用）
	GatewayTransactionUUID string `gorm:"type:varchar(64)" json:"-"`
	GatewayTotalAmount     int64  `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (o Order) FullName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}

// 注文番号（未採番ならIDの文字列）
func (o Order) NumberOrID() string {
	if o.OrderNumber != nil && *o.OrderNumber != "" {
		return *o.OrderNumber
	}
	return strconv.FormatInt(o.ID, 10)
}
