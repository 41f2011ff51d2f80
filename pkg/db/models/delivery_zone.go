package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryZone is a named shipping area with a flat fee. Read-only from the
// payment core's perspective.
type DeliveryZone struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	FeeCents  int64     `gorm:"column:fee_cents;not null"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
