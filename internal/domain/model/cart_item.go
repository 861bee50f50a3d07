package model

import "time"

// カートの明細
type CartItem struct {
	ID                int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID            int64       `gorm:"not null;index" json:"cart_id"`
	ProductID         int64       `gorm:"not null;index" json:"product_id"`
	Product           Product     `gorm:"foreignKey:ProductID" json:"product"`
	Quantity          int64       `gorm:"not null" json:"quantity"`
	UnitPriceSnapshot int64       `gorm:"not null;column:unit_price_snapshot" json:"unit_price_snapshot"`
	Variations        []Variation `gorm:"many2many:cart_item_variations;" json:"variations"`
	CreatedAt         time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
