package model

import "time"

type VariationCategory string

const (
	VariationCategoryColor VariationCategory = "color"
	VariationCategorySize  VariationCategory = "size"
)

// 商品のバリエーション（色・サイズ）
type Variation struct {
	ID                int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID         int64             `gorm:"not null;index" json:"product_id"`
	VariationCategory VariationCategory `gorm:"type:varchar(100);not null" json:"variation_category"`
	VariationValue    string            `gorm:"type:varchar(100);not null" json:"variation_value"`
	IsActive          bool              `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time         `gorm:"not null;autoCreateTime" json:"created_at"`
}
