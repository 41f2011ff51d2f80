package pricing

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opulentlabs/storefront-backend/pkg/db/dbtest"
	"github.com/opulentlabs/storefront-backend/pkg/db/models"
	"github.com/opulentlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/opulentlabs/storefront-backend/pkg/errors"
)

func TestComputeTotals(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	zone := &models.DeliveryZone{Name: "Westlands", FeeCents: 30000, IsActive: true}
	require.NoError(t, db.Create(zone).Error)
	dormant := &models.DeliveryZone{Name: "Old CBD", FeeCents: 20000, IsActive: false}
	require.NoError(t, db.Create(dormant).Error)

	t.Run("delivery adds the zone fee", func(t *testing.T) {
		totals, err := svc.ComputeTotals(ctx, 150000, enums.DeliveryTypeDelivery, &zone.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(150000), totals.SubtotalCents)
		assert.Equal(t, int64(30000), totals.DeliveryFeeCents)
		assert.Equal(t, int64(180000), totals.TotalCents)
		require.NotNil(t, totals.ZoneName)
		assert.Equal(t, "Westlands", *totals.ZoneName)
	})

	t.Run("pickup is always free", func(t *testing.T) {
		totals, err := svc.ComputeTotals(ctx, 150000, enums.DeliveryTypePickup, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), totals.DeliveryFeeCents)
		assert.Equal(t, int64(150000), totals.TotalCents)
		assert.Nil(t, totals.ZoneName)
	})

	t.Run("delivery without a zone is rejected", func(t *testing.T) {
		_, err := svc.ComputeTotals(ctx, 150000, enums.DeliveryTypeDelivery, nil)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	})

	t.Run("unknown zone is rejected", func(t *testing.T) {
		id := uuid.New()
		_, err := svc.ComputeTotals(ctx, 150000, enums.DeliveryTypeDelivery, &id)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	})

	t.Run("inactive zone is rejected", func(t *testing.T) {
		_, err := svc.ComputeTotals(ctx, 150000, enums.DeliveryTypeDelivery, &dormant.ID)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	})

	t.Run("invalid delivery type is rejected", func(t *testing.T) {
		_, err := svc.ComputeTotals(ctx, 150000, enums.DeliveryType("teleport"), nil)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	})
}

func TestNewMerchantReference(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-\d+-[0-9a-f]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		ref := NewMerchantReference()
		assert.Regexp(t, pattern, ref)
		assert.False(t, seen[ref], "reference %s repeated", ref)
		seen[ref] = true
	}
}
