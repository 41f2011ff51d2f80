package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opulentlabs/storefront-backend/pkg/db/models"
)

// Repository defines the catalog reads the checkout pipeline needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindInventory(ctx context.Context, productID uuid.UUID, size, color *string) (*models.InventoryRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindInventory looks up the stock row for one variant. A nil size or color
// matches only rows where that column is NULL; it is never a wildcard.
func (r *repository) FindInventory(ctx context.Context, productID uuid.UUID, size, color *string) (*models.InventoryRecord, error) {
	q := r.db.WithContext(ctx).Where("product_id = ?", productID)
	q = whereNullable(q, "size", size)
	q = whereNullable(q, "color", color)

	var record models.InventoryRecord
	if err := q.First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func whereNullable(q *gorm.DB, column string, value *string) *gorm.DB {
	if value == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *value)
}
