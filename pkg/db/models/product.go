package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry. DiscountPriceCents only applies when present,
// positive, and lower than the base price.
type Product struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string    `gorm:"column:name;not null"`
	PriceCents         int64     `gorm:"column:price_cents;not null"`
	DiscountPriceCents *int64    `gorm:"column:discount_price_cents"`
	IsActive           bool      `gorm:"column:is_active;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
