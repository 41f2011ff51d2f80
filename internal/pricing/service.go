package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opulentlabs/storefront-backend/pkg/db/models"
	"github.com/opulentlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/opulentlabs/storefront-backend/pkg/errors"
)

// Totals is the priced outcome of a cart: subtotal plus delivery fee, all in
// minor units.
type Totals struct {
	SubtotalCents    int64
	DeliveryFeeCents int64
	TotalCents       int64
	ZoneName         *string
}

// Service resolves delivery fees and computes order totals.
type Service interface {
	ComputeTotals(ctx context.Context, subtotalCents int64, deliveryType enums.DeliveryType, zoneID *uuid.UUID) (Totals, error)
}

// ZoneFinder is the single catalog read pricing needs.
type ZoneFinder interface {
	FindDeliveryZoneByID(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error)
}

type service struct {
	zones ZoneFinder
}

// NewService builds the pricing engine.
func NewService(zones ZoneFinder) (Service, error) {
	if zones == nil {
		return nil, fmt.Errorf("zone finder required")
	}
	return &service{zones: zones}, nil
}

// ComputeTotals derives the delivery fee from the order's delivery type and
// zone. Pickup always costs zero. Delivery requires an active zone; anything
// else is a validation failure, never a silent zero fee.
func (s *service) ComputeTotals(ctx context.Context, subtotalCents int64, deliveryType enums.DeliveryType, zoneID *uuid.UUID) (Totals, error) {
	if !deliveryType.Valid() {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery type")
	}

	totals := Totals{SubtotalCents: subtotalCents}

	if deliveryType == enums.DeliveryTypeDelivery {
		if zoneID == nil {
			return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery zone is required for delivery orders")
		}
		zone, err := s.zones.FindDeliveryZoneByID(ctx, *zoneID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery zone")
			}
			return Totals{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up delivery zone")
		}
		if !zone.IsActive {
			return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery zone is not available")
		}
		totals.DeliveryFeeCents = zone.FeeCents
		totals.ZoneName = &zone.Name
	}

	totals.TotalCents = totals.SubtotalCents + totals.DeliveryFeeCents
	return totals, nil
}
