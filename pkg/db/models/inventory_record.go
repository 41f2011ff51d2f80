package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryRecord is the stock row for one (product, size, color) variant.
// Size and color are part of the key; NULL means the base variant, not a
// wildcard. Absence of a row means the variant cannot be sold.
type InventoryRecord struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_inventory_variant"`
	Size              *string   `gorm:"column:size;uniqueIndex:idx_inventory_variant"`
	Color             *string   `gorm:"column:color;uniqueIndex:idx_inventory_variant"`
	Quantity          int       `gorm:"column:quantity;not null;default:0"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold;not null;default:5"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
