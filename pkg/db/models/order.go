package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/opulentlabs/storefront-backend/pkg/enums"
)

// Order is one purchase transaction. MerchantReference is the sole
// correlation key between an order and its gateway transaction: assigned
// once at creation, unique, never reused.
type Order struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantReference string             `gorm:"column:merchant_reference;not null;uniqueIndex"`
	CustomerName      string             `gorm:"column:customer_name;not null"`
	Email             string             `gorm:"column:email;not null"`
	Phone             string             `gorm:"column:phone;not null"`
	DeliveryType      enums.DeliveryType `gorm:"column:delivery_type;type:text;not null"`
	DeliveryZoneID    *uuid.UUID         `gorm:"column:delivery_zone_id;type:uuid"`
	DeliveryArea      *string            `gorm:"column:delivery_area"`
	DeliveryAddress   *string            `gorm:"column:delivery_address"`
	DeliveryFeeCents  int64              `gorm:"column:delivery_fee_cents;not null;default:0"`
	SubtotalCents     int64              `gorm:"column:subtotal_cents;not null"`
	TotalCents        int64              `gorm:"column:total_cents;not null"`
	Currency          enums.Currency     `gorm:"column:currency;type:text;not null;default:'KES'"`
	Status            enums.OrderStatus  `gorm:"column:status;type:text;not null;default:'Pending'"`
	GatewayTrackingID *string            `gorm:"column:gateway_tracking_id"`
	Items             []OrderItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
