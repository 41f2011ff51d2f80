package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opulentlabs/storefront-backend/pkg/config"
	"github.com/opulentlabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/opulentlabs/storefront-backend/pkg/errors"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
)

type recordedSend struct {
	To      string
	Subject string
	HTML    string
}

type recordingMailer struct {
	sends []recordedSend
	err   error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, html string) error {
	m.sends = append(m.sends, recordedSend{To: to, Subject: subject, HTML: html})
	return m.err
}

func strptr(s string) *string { return &s }

func paidOrder() *models.Order {
	return &models.Order{
		ID:                uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000000"),
		CustomerName:      "Wanjiku Kamau",
		Email:             "wanjiku@example.com",
		Phone:             "+254700000000",
		MerchantReference: "ORD-1755000000000-deadbeef",
		Currency:          "KES",
		TotalCents:        185000,
		DeliveryArea:      strptr("Westlands"),
		GatewayTrackingID: strptr("track-001"),
		Items: []models.OrderItem{
			{ProductName: "Rose Serum", Qty: 2},
			{ProductName: "Shea Balm", Qty: 1},
		},
	}
}

func TestOrderPaid(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})

	t.Run("sends customer confirmation and admin alert", func(t *testing.T) {
		mailer := &recordingMailer{}
		svc, err := NewService(mailer, config.PaymentsConfig{AdminEmail: "ops@opulentcosmetics.com"}, logg)
		require.NoError(t, err)

		svc.OrderPaid(context.Background(), paidOrder())

		require.Len(t, mailer.sends, 2)
		customer, admin := mailer.sends[0], mailer.sends[1]

		assert.Equal(t, "wanjiku@example.com", customer.To)
		assert.Equal(t, "Order Confirmed - #a1b2c3d4", customer.Subject)
		assert.Contains(t, customer.HTML, "Wanjiku Kamau")
		assert.Contains(t, customer.HTML, "KES 1850.00")
		assert.Contains(t, customer.HTML, "ORD-1755000000000-deadbeef")
		assert.Contains(t, customer.HTML, "<li>Rose Serum x2</li>")
		assert.Contains(t, customer.HTML, "Delivery to Westlands")

		assert.Equal(t, "ops@opulentcosmetics.com", admin.To)
		assert.Equal(t, "New Paid Order - #a1b2c3d4", admin.Subject)
		assert.Contains(t, admin.HTML, "track-001")
		assert.Contains(t, admin.HTML, "+254700000000")
	})

	t.Run("pickup orders say so", func(t *testing.T) {
		mailer := &recordingMailer{}
		svc, err := NewService(mailer, config.PaymentsConfig{}, logg)
		require.NoError(t, err)

		order := paidOrder()
		order.DeliveryArea = nil
		svc.OrderPaid(context.Background(), order)

		require.Len(t, mailer.sends, 1)
		assert.Contains(t, mailer.sends[0].HTML, "Pickup at store")
	})

	t.Run("skips admin alert when no admin email is configured", func(t *testing.T) {
		mailer := &recordingMailer{}
		svc, err := NewService(mailer, config.PaymentsConfig{}, logg)
		require.NoError(t, err)

		svc.OrderPaid(context.Background(), paidOrder())
		assert.Len(t, mailer.sends, 1)
	})

	t.Run("swallows send failures", func(t *testing.T) {
		mailer := &recordingMailer{err: errors.New("smtp on fire")}
		svc, err := NewService(mailer, config.PaymentsConfig{AdminEmail: "ops@opulentcosmetics.com"}, logg)
		require.NoError(t, err)

		assert.NotPanics(t, func() {
			svc.OrderPaid(context.Background(), paidOrder())
		})
		assert.Len(t, mailer.sends, 2)
	})
}

func TestResendMailer(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})

	t.Run("posts the email with bearer auth", func(t *testing.T) {
		var got sendRequest
		var auth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		m := NewMailer(config.ResendConfig{APIKey: "re_test_key", DefaultFrom: "Opulent <hello@opulentcosmetics.com>"}, logg)
		m.(*resendMailer).baseURL = srv.URL

		err := m.Send(context.Background(), "wanjiku@example.com", "Order Confirmed", "<p>hi</p>")
		require.NoError(t, err)

		assert.Equal(t, "Bearer re_test_key", auth)
		assert.Equal(t, "Opulent <hello@opulentcosmetics.com>", got.From)
		assert.Equal(t, []string{"wanjiku@example.com"}, got.To)
		assert.Equal(t, "Order Confirmed", got.Subject)
		assert.Equal(t, "<p>hi</p>", got.HTML)
	})

	t.Run("non-2xx is a dependency error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"message":"invalid from"}`, http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		m := NewMailer(config.ResendConfig{APIKey: "re_test_key"}, logg)
		m.(*resendMailer).baseURL = srv.URL

		err := m.Send(context.Background(), "wanjiku@example.com", "x", "y")
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
	})

	t.Run("falls back to the log mailer without an api key", func(t *testing.T) {
		m := NewMailer(config.ResendConfig{}, logg)
		_, ok := m.(*logMailer)
		require.True(t, ok)
		assert.NoError(t, m.Send(context.Background(), "wanjiku@example.com", "x", "y"))
	})
}
