package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/opulentlabs/storefront-backend/pkg/db/dbtest"
	"github.com/opulentlabs/storefront-backend/pkg/db/models"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
)

func strptr(s string) *string { return &s }

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return svc
}

func seedStock(t *testing.T, db *gorm.DB, productID uuid.UUID, size, color *string, qty int) uuid.UUID {
	t.Helper()
	rec := &models.InventoryRecord{ProductID: productID, Size: size, Color: color, Quantity: qty}
	require.NoError(t, db.Create(rec).Error)
	return rec.ID
}

func stockOf(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var rec models.InventoryRecord
	require.NoError(t, db.First(&rec, "id = ?", id).Error)
	return rec.Quantity
}

func orderWith(items ...models.OrderItem) *models.Order {
	return &models.Order{ID: uuid.New(), Items: items}
}

func TestApplyDecrement(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	t.Run("reduces stock per line", func(t *testing.T) {
		db := dbtest.Open(t)
		productA, productB := uuid.New(), uuid.New()
		recA := seedStock(t, db, productA, nil, nil, 10)
		recB := seedStock(t, db, productB, strptr("50ml"), nil, 4)

		order := orderWith(
			models.OrderItem{ProductID: productA, Qty: 3},
			models.OrderItem{ProductID: productB, Size: strptr("50ml"), Qty: 1},
		)
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return svc.ApplyDecrement(ctx, tx, order)
		}))

		assert.Equal(t, 7, stockOf(t, db, recA))
		assert.Equal(t, 3, stockOf(t, db, recB))
	})

	t.Run("clamps at zero", func(t *testing.T) {
		db := dbtest.Open(t)
		productID := uuid.New()
		rec := seedStock(t, db, productID, nil, nil, 2)

		order := orderWith(models.OrderItem{ProductID: productID, Qty: 5})
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return svc.ApplyDecrement(ctx, tx, order)
		}))

		assert.Equal(t, 0, stockOf(t, db, rec))
	})

	t.Run("only touches the matching variant", func(t *testing.T) {
		db := dbtest.Open(t)
		productID := uuid.New()
		base := seedStock(t, db, productID, nil, nil, 10)
		sized := seedStock(t, db, productID, strptr("mini"), strptr("red"), 10)

		order := orderWith(models.OrderItem{
			ProductID: productID, Size: strptr("mini"), Color: strptr("red"), Qty: 4,
		})
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return svc.ApplyDecrement(ctx, tx, order)
		}))

		assert.Equal(t, 10, stockOf(t, db, base))
		assert.Equal(t, 6, stockOf(t, db, sized))
	})

	t.Run("missing row is skipped, other lines still apply", func(t *testing.T) {
		db := dbtest.Open(t)
		stocked := uuid.New()
		rec := seedStock(t, db, stocked, nil, nil, 8)

		order := orderWith(
			models.OrderItem{ProductID: uuid.New(), Qty: 2},
			models.OrderItem{ProductID: stocked, Qty: 2},
		)
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return svc.ApplyDecrement(ctx, tx, order)
		}))

		assert.Equal(t, 6, stockOf(t, db, rec))
	})

	t.Run("requires a transaction", func(t *testing.T) {
		order := orderWith(models.OrderItem{ProductID: uuid.New(), Qty: 1})
		err := svc.ApplyDecrement(ctx, nil, order)
		assert.Error(t, err)
	})
}
