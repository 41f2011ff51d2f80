package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opulentlabs/storefront-backend/pkg/config"
	"github.com/opulentlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/opulentlabs/storefront-backend/pkg/errors"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
)

const defaultBaseURL = "https://api.paystack.co"

var errSecretKeyRequired = errors.New("paystack secret key is required")

// Client wraps Paystack's REST API. The storefront only needs server-side
// transaction verification; the inline checkout runs in the browser.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient validates the secret key and returns a ready client.
func NewClient(cfg config.PaystackConfig, timeout time.Duration, logg *logger.Logger) (*Client, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, errSecretKeyRequired
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    defaultBaseURL,
		secretKey:  key,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logg,
	}, nil
}

type verifyEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type verifyData struct {
	ID       int64  `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Channel  string `json:"channel"`
	PaidAt   string `json:"paid_at"`
}

// VerifyResult is the normalized verdict for a verified transaction.
// Amounts stay in minor units, which is how Paystack reports them.
type VerifyResult struct {
	TransactionID string
	Status        string
	AmountMinor   int64
	Currency      string
	Channel       string
	PaidAt        string
}

// Outcome maps Paystack's transaction status onto the normalized verdict.
func (r *VerifyResult) Outcome() enums.PaymentOutcomeKind {
	switch strings.ToLower(strings.TrimSpace(r.Status)) {
	case "success":
		return enums.PaymentOutcomeSuccess
	case "failed", "abandoned", "reversed":
		return enums.PaymentOutcomeFailed
	default:
		return enums.PaymentOutcomePending
	}
}

// VerifyTransaction asks Paystack for the authoritative state of a
// transaction by its reference. Client-side success callbacks are never
// trusted without this call.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}

	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "paystack: build verify request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "paystack verify transaction")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "paystack verify: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logUpstreamFailure(ctx, resp.StatusCode, raw)
		return nil, pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("paystack verify: upstream status %d", resp.StatusCode)).
			WithDetails(map[string]any{"status": resp.StatusCode, "body": truncate(raw)})
	}

	var envelope verifyEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "paystack verify: decode response")
	}
	if !envelope.Status || len(envelope.Data) == 0 {
		msg := envelope.Message
		if msg == "" {
			msg = "verification rejected"
		}
		return nil, pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("paystack verify: %s", msg))
	}

	var data verifyData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "paystack verify: decode data")
	}

	return &VerifyResult{
		TransactionID: strconv.FormatInt(data.ID, 10),
		Status:        data.Status,
		AmountMinor:   data.Amount,
		Currency:      data.Currency,
		Channel:       data.Channel,
		PaidAt:        data.PaidAt,
	}, nil
}

func (c *Client) logUpstreamFailure(ctx context.Context, status int, body []byte) {
	if c.logger == nil {
		return
	}
	ctx = c.logger.WithFields(ctx, map[string]any{
		"status": status,
		"body":   truncate(body),
	})
	c.logger.Warn(ctx, "paystack upstream failure")
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
