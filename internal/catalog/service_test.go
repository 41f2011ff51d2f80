package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/opulentlabs/storefront-backend/pkg/db/dbtest"
	"github.com/opulentlabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/opulentlabs/storefront-backend/pkg/errors"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
)

func strptr(s string) *string { return &s }

func int64ptr(v int64) *int64 { return &v }

func seedProduct(t *testing.T, db *gorm.DB, p *models.Product) *models.Product {
	t.Helper()
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedStock(t *testing.T, db *gorm.DB, productID uuid.UUID, size, color *string, qty int) {
	t.Helper()
	require.NoError(t, db.Create(&models.InventoryRecord{
		ProductID: productID,
		Size:      size,
		Color:     color,
		Quantity:  qty,
	}).Error)
}

func newService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return svc
}

func TestValidateCart(t *testing.T) {
	ctx := context.Background()

	t.Run("validates lines and totals the subtotal", func(t *testing.T) {
		db := dbtest.Open(t)
		svc := newService(t, db)

		serum := seedProduct(t, db, &models.Product{Name: "Rose Serum", PriceCents: 150000, IsActive: true})
		balm := seedProduct(t, db, &models.Product{Name: "Shea Balm", PriceCents: 80000, IsActive: true})
		seedStock(t, db, serum.ID, nil, nil, 10)
		seedStock(t, db, balm.ID, strptr("50ml"), nil, 5)

		lines, subtotal, err := svc.ValidateCart(ctx, []CartLine{
			{ProductID: serum.ID, Qty: 2},
			{ProductID: balm.ID, Qty: 1, Size: strptr("50ml")},
		})
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, int64(2*150000+80000), subtotal)
		assert.Equal(t, "Rose Serum", lines[0].ProductName)
		assert.Equal(t, int64(300000), lines[0].TotalCents)
	})

	t.Run("uses the discount price when it undercuts the base price", func(t *testing.T) {
		db := dbtest.Open(t)
		svc := newService(t, db)

		p := seedProduct(t, db, &models.Product{
			Name: "Clay Mask", PriceCents: 100000, DiscountPriceCents: int64ptr(75000), IsActive: true,
		})
		seedStock(t, db, p.ID, nil, nil, 3)

		lines, subtotal, err := svc.ValidateCart(ctx, []CartLine{{ProductID: p.ID, Qty: 1}})
		require.NoError(t, err)
		assert.Equal(t, int64(75000), lines[0].UnitPriceCents)
		assert.Equal(t, int64(75000), subtotal)
	})

	t.Run("ignores a discount that is not a discount", func(t *testing.T) {
		db := dbtest.Open(t)
		svc := newService(t, db)

		p := seedProduct(t, db, &models.Product{
			Name: "Night Cream", PriceCents: 100000, DiscountPriceCents: int64ptr(120000), IsActive: true,
		})
		seedStock(t, db, p.ID, nil, nil, 3)

		lines, _, err := svc.ValidateCart(ctx, []CartLine{{ProductID: p.ID, Qty: 1}})
		require.NoError(t, err)
		assert.Equal(t, int64(100000), lines[0].UnitPriceCents)
	})

	t.Run("unknown product is NOT_FOUND", func(t *testing.T) {
		db := dbtest.Open(t)
		svc := newService(t, db)

		_, _, err := svc.ValidateCart(ctx, []CartLine{{ProductID: uuid.New(), Qty: 1}})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
	})

	t.Run("inactive product is NOT_FOUND", func(t *testing.T) {
		db := dbtest.Open(t)
		svc := newService(t, db)

		p := seedProduct(t, db, &models.Product{Name: "Retired Oil", PriceCents: 50000, IsActive: false})
		seedStock(t, db, p.ID, nil, nil, 10)

		_, _, err := svc.ValidateCart(ctx, []CartLine{{ProductID: p.ID, Qty: 1}})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
	})

	t.Run("missing inventory row reads as zero stock", func(t *testing.T) {
		db := dbtest.Open(t)
		svc := newService(t, db)

		p := seedProduct(t, db, &models.Product{Name: "Body Butter", PriceCents: 60000, IsActive: true})

		_, _, err := svc.ValidateCart(ctx, []CartLine{{ProductID: p.ID, Qty: 1}})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())
	})

	t.Run("oversell is INSUFFICIENT_STOCK with details", func(t *testing.T) {
		db := dbtest.Open(t)
		svc := newService(t, db)

		p := seedProduct(t, db, &models.Product{Name: "Rose Serum", PriceCents: 150000, IsActive: true})
		seedStock(t, db, p.ID, nil, nil, 2)

		_, _, err := svc.ValidateCart(ctx, []CartLine{{ProductID: p.ID, Qty: 3}})
		require.Error(t, err)

		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

		details, ok := typed.Details().(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Rose Serum", details["product"])
		assert.Equal(t, 3, details["requested"])
		assert.Equal(t, 2, details["available"])
	})

	t.Run("variant keys match with NULL semantics", func(t *testing.T) {
		db := dbtest.Open(t)
		svc := newService(t, db)

		p := seedProduct(t, db, &models.Product{Name: "Silk Gloss", PriceCents: 45000, IsActive: true})
		seedStock(t, db, p.ID, strptr("mini"), strptr("red"), 5)

		// base variant has no stock row, so it must not see the sized row
		_, _, err := svc.ValidateCart(ctx, []CartLine{{ProductID: p.ID, Qty: 1}})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())

		lines, _, err := svc.ValidateCart(ctx, []CartLine{
			{ProductID: p.ID, Qty: 1, Size: strptr("mini"), Color: strptr("red")},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, lines[0].Qty)
	})

	t.Run("empty cart is a validation error", func(t *testing.T) {
		db := dbtest.Open(t)
		svc := newService(t, db)

		_, _, err := svc.ValidateCart(ctx, nil)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	})

	t.Run("non-positive quantity is a validation error", func(t *testing.T) {
		db := dbtest.Open(t)
		svc := newService(t, db)

		_, _, err := svc.ValidateCart(ctx, []CartLine{{ProductID: uuid.New(), Qty: 0}})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	})
}
