package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/opulentlabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/opulentlabs/storefront-backend/pkg/errors"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
)

// Service validates cart lines against the live catalog and stock levels.
type Service interface {
	ValidateCart(ctx context.Context, lines []CartLine) ([]ValidatedLine, int64, error)
}

type service struct {
	repo   Repository
	logger *logger.Logger
}

// NewService builds the stock validator.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logger: logg}, nil
}

// ValidateCart checks every line for product existence, stock availability,
// and recomputes prices server-side. The returned subtotal is the sum of the
// validated line totals in minor units.
func (s *service) ValidateCart(ctx context.Context, lines []CartLine) ([]ValidatedLine, int64, error) {
	if len(lines) == 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	validated := make([]ValidatedLine, 0, len(lines))
	var subtotal int64

	for _, line := range lines {
		if line.Qty <= 0 {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}

		product, err := s.repo.FindProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": line.ProductID})
			}
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up product")
		}
		if !product.IsActive {
			return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}

		available, err := s.availableStock(ctx, line)
		if err != nil {
			return nil, 0, err
		}
		if line.Qty > available {
			return nil, 0, pkgerrors.New(pkgerrors.CodeInsufficientStock,
				fmt.Sprintf("insufficient stock for %s", product.Name)).
				WithDetails(map[string]any{
					"product":   product.Name,
					"requested": line.Qty,
					"available": available,
				})
		}

		unit := EffectivePriceCents(product)
		v := ValidatedLine{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Size:           line.Size,
			Color:          line.Color,
			Qty:            line.Qty,
			UnitPriceCents: unit,
			TotalCents:     unit * int64(line.Qty),
		}
		validated = append(validated, v)
		subtotal += v.TotalCents
	}

	return validated, subtotal, nil
}

// availableStock resolves the variant's stock level. A missing inventory row
// means the variant is not sellable, so it reads as zero.
func (s *service) availableStock(ctx context.Context, line CartLine) (int, error) {
	record, err := s.repo.FindInventory(ctx, line.ProductID, line.Size, line.Color)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx = s.logger.WithFields(ctx, map[string]any{
				"product_id": line.ProductID,
				"size":       derefOr(line.Size, ""),
				"color":      derefOr(line.Color, ""),
			})
			s.logger.Warn(ctx, "no inventory row for variant, treating as out of stock")
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up inventory")
	}
	return record.Quantity, nil
}

// EffectivePriceCents picks the discount price when it is present, positive,
// and strictly below the base price.
func EffectivePriceCents(p *models.Product) int64 {
	if p.DiscountPriceCents != nil && *p.DiscountPriceCents > 0 && *p.DiscountPriceCents < p.PriceCents {
		return *p.DiscountPriceCents
	}
	return p.PriceCents
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
