package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opulentlabs/storefront-backend/pkg/config"
	"github.com/opulentlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/opulentlabs/storefront-backend/pkg/errors"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{
		baseURL:    srv.URL,
		secretKey:  "sk_test_abc",
		httpClient: srv.Client(),
	}
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(config.PaystackConfig{}, time.Second, nil)
	require.ErrorIs(t, err, errSecretKeyRequired)

	client, err := NewClient(config.PaystackConfig{SecretKey: " sk_test_abc "}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "sk_test_abc", client.secretKey)
	assert.Equal(t, defaultBaseURL, client.baseURL)
}

func TestVerifyTransaction(t *testing.T) {
	t.Run("successful transaction", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/transaction/verify/ORD-1700000000000-deadbeef", r.URL.Path)
			assert.Equal(t, "Bearer sk_test_abc", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]any{
				"status":  true,
				"message": "Verification successful",
				"data": map[string]any{
					"id":       987654321,
					"status":   "success",
					"amount":   250050,
					"currency": "KES",
					"channel":  "card",
					"paid_at":  "2026-08-30T14:00:00.000Z",
				},
			})
		}))
		defer srv.Close()

		result, err := testClient(srv).VerifyTransaction(context.Background(), "ORD-1700000000000-deadbeef")
		require.NoError(t, err)
		assert.Equal(t, enums.PaymentOutcomeSuccess, result.Outcome())
		assert.Equal(t, int64(250050), result.AmountMinor)
		assert.Equal(t, "987654321", result.TransactionID)
		assert.Equal(t, "KES", result.Currency)
	})

	t.Run("failed transaction maps to failed outcome", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"status": true,
				"data":   map[string]any{"id": 1, "status": "abandoned", "amount": 250050},
			})
		}))
		defer srv.Close()

		result, err := testClient(srv).VerifyTransaction(context.Background(), "ref-1")
		require.NoError(t, err)
		assert.Equal(t, enums.PaymentOutcomeFailed, result.Outcome())
	})

	t.Run("unknown reference surfaces as gateway error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{
				"status":  false,
				"message": "Transaction reference not found",
			})
		}))
		defer srv.Close()

		_, err := testClient(srv).VerifyTransaction(context.Background(), "missing")
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeGateway, pkgerrors.As(err).Code())
	})

	t.Run("false status envelope is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Invalid key"})
		}))
		defer srv.Close()

		_, err := testClient(srv).VerifyTransaction(context.Background(), "ref-1")
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeGateway, pkgerrors.As(err).Code())
	})

	t.Run("empty reference is rejected locally", func(t *testing.T) {
		_, err := (&Client{baseURL: "http://unused"}).VerifyTransaction(context.Background(), "  ")
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	})
}

func TestVerifyResultOutcome(t *testing.T) {
	cases := []struct {
		status string
		want   enums.PaymentOutcomeKind
	}{
		{"success", enums.PaymentOutcomeSuccess},
		{"SUCCESS", enums.PaymentOutcomeSuccess},
		{"failed", enums.PaymentOutcomeFailed},
		{"abandoned", enums.PaymentOutcomeFailed},
		{"reversed", enums.PaymentOutcomeFailed},
		{"ongoing", enums.PaymentOutcomePending},
		{"", enums.PaymentOutcomePending},
	}
	for _, tc := range cases {
		r := VerifyResult{Status: tc.status}
		assert.Equal(t, tc.want, r.Outcome(), "status %q", tc.status)
	}
}
