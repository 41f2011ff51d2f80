package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opulentlabs/storefront-backend/api/responses"
	pkgerrors "github.com/opulentlabs/storefront-backend/pkg/errors"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = value.(string)
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "idempotency:" + scope + ":" + id
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func newIdempotentRouter(store *memoryStore, calls *int) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test"})
	r := chi.NewRouter()
	r.With(Idempotency(store, logg)).Post("/api/payments/create-order", func(w http.ResponseWriter, _ *http.Request) {
		*calls++
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"reference": "ORD-1-deadbeef"})
	})
	r.With(Idempotency(store, logg)).Post("/api/payments/verify-payment", func(w http.ResponseWriter, _ *http.Request) {
		*calls++
		responses.WriteSuccess(w, map[string]string{"status": "Paid"})
	})
	return r
}

func postJSON(router http.Handler, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency(t *testing.T) {
	const body = `{"items":[{"product_id":"x","qty":1}]}`

	t.Run("missing header is rejected before the handler runs", func(t *testing.T) {
		calls := 0
		router := newIdempotentRouter(newMemoryStore(), &calls)

		rec := postJSON(router, "/api/payments/create-order", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, calls)
	})

	t.Run("replay returns the stored response without re-running the handler", func(t *testing.T) {
		calls := 0
		router := newIdempotentRouter(newMemoryStore(), &calls)

		first := postJSON(router, "/api/payments/create-order", "key-1", body)
		require.Equal(t, http.StatusCreated, first.Code)
		require.Equal(t, 1, calls)

		second := postJSON(router, "/api/payments/create-order", "key-1", body)
		assert.Equal(t, http.StatusCreated, second.Code)
		assert.Equal(t, first.Body.String(), second.Body.String())
		assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
		assert.Equal(t, 1, calls)
	})

	t.Run("key reuse with a different body is a conflict", func(t *testing.T) {
		calls := 0
		router := newIdempotentRouter(newMemoryStore(), &calls)

		require.Equal(t, http.StatusCreated, postJSON(router, "/api/payments/create-order", "key-1", body).Code)

		rec := postJSON(router, "/api/payments/create-order", "key-1", `{"items":[{"product_id":"x","qty":2}]}`)
		assert.Equal(t, http.StatusConflict, rec.Code)

		var envelope struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, string(pkgerrors.CodeIdempotency), envelope.Error.Code)
		assert.Equal(t, 1, calls)
	})

	t.Run("distinct keys are independent", func(t *testing.T) {
		calls := 0
		router := newIdempotentRouter(newMemoryStore(), &calls)

		postJSON(router, "/api/payments/create-order", "key-1", body)
		postJSON(router, "/api/payments/create-order", "key-2", body)
		assert.Equal(t, 2, calls)
	})

	t.Run("unguarded routes pass through without a key", func(t *testing.T) {
		calls := 0
		router := newIdempotentRouter(newMemoryStore(), &calls)

		rec := postJSON(router, "/api/payments/verify-payment", "", `{"reference":"ORD-1-deadbeef"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, calls)
	})

	t.Run("nil store disables the guard", func(t *testing.T) {
		calls := 0
		logg := logger.New(logger.Options{ServiceName: "test"})
		r := chi.NewRouter()
		r.With(Idempotency(nil, logg)).Post("/api/payments/create-order", func(w http.ResponseWriter, _ *http.Request) {
			calls++
			responses.WriteSuccessStatus(w, http.StatusCreated, nil)
		})

		rec := postJSON(r, "/api/payments/create-order", "", body)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, 1, calls)
	})
}
