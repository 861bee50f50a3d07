package usecase

import (
	"context"
	"time"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

// 購入者へのレシート送信
type Notifier interface {
	SendReceipt(ctx context.Context, receipt Receipt) error
}

// 注文ごとのコールバック処理を直列にする補助ロック。
// 取れなくてもDBのロックで正しさは保たれる
type CallbackLock interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type ReceiptLine struct {
	ProductName string   `json:"product_name"`
	Variations  []string `json:"variations"`
	Quantity    int64    `json:"quantity"`
	UnitPrice   int64    `json:"unit_price"`
	Subtotal    int64    `json:"subtotal"`
}

// レシートメールの中身
type Receipt struct {
	To          string
	BuyerName   string
	OrderNumber string
	PaymentID   string
	Lines       []ReceiptLine
	AmountPaid  int64
	PlacedAt    time.Time
}
