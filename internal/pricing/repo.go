package pricing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opulentlabs/storefront-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a delivery-zone reader bound to the provided DB.
func NewRepository(db *gorm.DB) ZoneFinder {
	return &repository{db: db}
}

func (r *repository) FindDeliveryZoneByID(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
	var zone models.DeliveryZone
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&zone).Error
	if err != nil {
		return nil, err
	}
	return &zone, nil
}
