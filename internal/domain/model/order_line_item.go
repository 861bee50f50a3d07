package model

import "time"

// 注文明細。カート明細1件につき1行（order_id, cart_item_id で一意）
type OrderLineItem struct {
	ID           int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID      int64       `gorm:"not null;index;uniqueIndex:idx_line_items_order_cart_item" json:"order_id"`
	CartItemID   int64       `gorm:"not null;uniqueIndex:idx_line_items_order_cart_item" json:"-"`
	PaymentRefID *int64      `gorm:"index" json:"payment_ref_id"`
	UserID       int64       `gorm:"not null;index" json:"user_id"`
	ProductID    int64       `gorm:"not null;index" json:"product_id"`
	Product      Product     `gorm:"foreignKey:ProductID" json:"product"`
	Quantity     int64       `gorm:"not null" json:"quantity"`
	ProductPrice int64       `gorm:"not null" json:"product_price"`
	Ordered      bool        `gorm:"not null;default:false" json:"ordered"`
	Variations   []Variation `gorm:"many2many:order_line_item_variations;" json:"variations"`
	CreatedAt    time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (li OrderLineItem) Subtotal() int64 {
	return li.ProductPrice * li.Quantity
}
