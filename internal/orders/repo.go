package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opulentlabs/storefront-backend/pkg/db/models"
	"github.com/opulentlabs/storefront-backend/pkg/enums"
)

// Repository is the order ledger. ClaimPaid is the only write that may move
// an order into Paid, and it is safe to call any number of times.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateWithItems(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByMerchantReference(ctx context.Context, reference string) (*models.Order, error)
	ClaimPaid(ctx context.Context, orderID uuid.UUID, trackingID *string) (bool, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID, trackingID *string) error
	UpdateTrackingID(ctx context.Context, orderID uuid.UUID, trackingID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order ledger bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateWithItems persists the order and its line items as one write. gorm
// saves the Items association in the same statement batch, and the caller's
// transaction guarantees no partial order survives a failure.
func (r *repository) CreateWithItems(ctx context.Context, order *models.Order) (*models.Order, error) {
	if len(order.Items) == 0 {
		return nil, fmt.Errorf("order has no items")
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByMerchantReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("merchant_reference = ?", reference).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ClaimPaid attempts the Pending -> Paid transition with a conditional
// update. The WHERE clause excludes every already-processed status, so under
// concurrent notifications exactly one caller sees claimed=true and runs the
// paid side effects. claimed=false is the duplicate signal, not an error.
func (r *repository) ClaimPaid(ctx context.Context, orderID uuid.UUID, trackingID *string) (bool, error) {
	updates := map[string]any{"status": enums.OrderStatusPaid}
	if trackingID != nil && *trackingID != "" {
		updates["gateway_tracking_id"] = *trackingID
	}

	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", orderID, enums.ProcessedStatuses()).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed records a failed payment outcome. Orders already processed are
// left alone; a late failure signal never un-pays an order.
func (r *repository) MarkFailed(ctx context.Context, orderID uuid.UUID, trackingID *string) error {
	updates := map[string]any{"status": enums.OrderStatusFailed}
	if trackingID != nil && *trackingID != "" {
		updates["gateway_tracking_id"] = *trackingID
	}

	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", orderID, enums.ProcessedStatuses()).
		Updates(updates).Error
}

func (r *repository) UpdateTrackingID(ctx context.Context, orderID uuid.UUID, trackingID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("gateway_tracking_id", trackingID).Error
}
