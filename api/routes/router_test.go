package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opulentlabs/storefront-backend/internal/payments"
	"github.com/opulentlabs/storefront-backend/pkg/config"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
	"github.com/opulentlabs/storefront-backend/pkg/metrics"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type noopPayments struct{}

func (noopPayments) CreateOrder(context.Context, payments.CreateOrderInput) (*payments.CreateOrderResult, error) {
	return nil, errors.New("not under test")
}

func (noopPayments) Initialize(context.Context, payments.InitializeInput) (*payments.InitializeResult, error) {
	return nil, errors.New("not under test")
}

func (noopPayments) VerifyPayment(context.Context, string) (*payments.VerifyResult, error) {
	return nil, errors.New("not under test")
}

func (noopPayments) HandleIPN(context.Context, payments.IPNParams) (*payments.IPNResult, error) {
	return nil, errors.New("not under test")
}

func newTestRouter(dbErr error) http.Handler {
	reg := prometheus.NewRegistry()
	pm := metrics.NewPaymentMetrics(reg)
	pm.IncReconciled("verify")

	return NewRouter(Deps{
		Config:       &config.Config{App: config.AppConfig{Env: "test"}},
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
		DB:           stubPinger{err: dbErr},
		Payments:     noopPayments{},
		PromGatherer: reg,
	})
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter(t *testing.T) {
	t.Run("liveness always succeeds", func(t *testing.T) {
		rec := get(newTestRouter(nil), "/health/live")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "test", rec.Header().Get("X-Opulent-Env"))
	})

	t.Run("readiness reflects dependency health", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(newTestRouter(nil), "/health/ready").Code)
		assert.Equal(t, http.StatusServiceUnavailable,
			get(newTestRouter(errors.New("connection refused")), "/health/ready").Code)
	})

	t.Run("metrics endpoint serves the registry", func(t *testing.T) {
		rec := get(newTestRouter(nil), "/metrics")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "payments_reconciled_total")
	})

	t.Run("unknown routes get the json envelope", func(t *testing.T) {
		rec := get(newTestRouter(nil), "/api/unknown")
		require.Equal(t, http.StatusNotFound, rec.Code)

		var envelope struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
	})

	t.Run("requests carry a request id", func(t *testing.T) {
		rec := get(newTestRouter(nil), "/health/live")
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	})
}
