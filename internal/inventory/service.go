package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/opulentlabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/opulentlabs/storefront-backend/pkg/errors"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
)

// Service applies stock movements after a payment settles.
type Service interface {
	ApplyDecrement(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

type service struct {
	logger *logger.Logger
}

// NewService builds the inventory adjuster.
func NewService(logg *logger.Logger) (Service, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{logger: logg}, nil
}

// ApplyDecrement reduces stock for every line of a settled order inside the
// caller's transaction. Quantities clamp at zero rather than going negative;
// a vanished inventory row is logged and skipped so a late catalog change
// cannot block reconciliation. Update errors are collected per item and
// surfaced together so the caller can roll back the claim.
func (s *service) ApplyDecrement(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}

	var errs error
	for i := range order.Items {
		item := &order.Items[i]
		if err := s.decrementItem(ctx, tx, order.ID, item); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("item %s: %w", item.ProductID, err))
		}
	}
	if errs != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, errs, "applying inventory decrement")
	}
	return nil
}

func (s *service) decrementItem(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, item *models.OrderItem) error {
	q := tx.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("product_id = ?", item.ProductID)
	q = whereNullable(q, "size", item.Size)
	q = whereNullable(q, "color", item.Color)

	res := q.Update("quantity", gorm.Expr(clampExpr(tx), item.Qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		ctx = s.logger.WithFields(ctx, map[string]any{
			"order_id":   orderID,
			"product_id": item.ProductID,
			"qty":        item.Qty,
		})
		s.logger.Warn(ctx, "no inventory row to decrement, skipping")
	}
	return nil
}

// clampExpr picks the zero-clamp expression for the active dialect. Postgres
// spells it GREATEST; the sqlite driver used in tests spells it MAX.
func clampExpr(tx *gorm.DB) string {
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return "MAX(quantity - ?, 0)"
	}
	return "GREATEST(quantity - ?, 0)"
}

func whereNullable(q *gorm.DB, column string, value *string) *gorm.DB {
	if value == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *value)
}
