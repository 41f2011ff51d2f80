package pesapal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opulentlabs/storefront-backend/pkg/config"
	"github.com/opulentlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/opulentlabs/storefront-backend/pkg/errors"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
)

const (
	sandboxEnv = "sandbox"
	liveEnv    = "live"
)

var (
	errCredentialsRequired = errors.New("pesapal consumer key and secret are required")
	errInvalidPesapalEnv   = fmt.Errorf("pesapal environment must be %q or %q", sandboxEnv, liveEnv)
)

var baseURLs = map[string]string{
	sandboxEnv: "https://cybqa.pesapal.com/pesapalv3",
	liveEnv:    "https://pay.pesapal.com/v3",
}

// Client talks to Pesapal's v3 API: token exchange, hosted-page order
// submission, and the confirmatory transaction-status query the IPN
// handler relies on.
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	ipnID          string
	environment    string
	httpClient     *http.Client
	logger         *logger.Logger
}

// NewClient validates the credentials and binds the environment base URL.
func NewClient(cfg config.PesapalConfig, timeout time.Duration, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(cfg.ConsumerKey)
	secret := strings.TrimSpace(cfg.ConsumerSecret)
	if key == "" || secret == "" {
		return nil, errCredentialsRequired
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:        baseURLs[env],
		consumerKey:    key,
		consumerSecret: secret,
		ipnID:          strings.TrimSpace(cfg.IPNID),
		environment:    env,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logg,
	}, nil
}

// Environment reports the normalized Pesapal environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// IPNID returns the pre-registered notification channel id.
func (c *Client) IPNID() string {
	if c == nil {
		return ""
	}
	return c.ipnID
}

type tokenResponse struct {
	Token   string `json:"token"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RequestToken exchanges the consumer credentials for a short-lived bearer
// token. Pesapal tokens expire quickly, so callers fetch one per operation.
func (c *Client) RequestToken(ctx context.Context) (string, error) {
	payload := map[string]string{
		"consumer_key":    c.consumerKey,
		"consumer_secret": c.consumerSecret,
	}

	var resp tokenResponse
	if err := c.postJSON(ctx, "/api/Auth/RequestToken", "", payload, &resp); err != nil {
		return "", err
	}
	if resp.Status != "200" || resp.Token == "" {
		msg := resp.Message
		if msg == "" {
			msg = "authentication rejected"
		}
		return "", pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("pesapal auth: %s", msg))
	}
	return resp.Token, nil
}

// BillingAddress mirrors Pesapal's billing_address payload.
type BillingAddress struct {
	EmailAddress string `json:"email_address"`
	PhoneNumber  string `json:"phone_number"`
	CountryCode  string `json:"country_code"`
	FirstName    string `json:"first_name"`
	MiddleName   string `json:"middle_name"`
	LastName     string `json:"last_name"`
	Line1        string `json:"line_1"`
	Line2        string `json:"line_2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	ZipCode      string `json:"zip_code"`
}

// SubmitOrderParams describes a hosted-page payment request.
type SubmitOrderParams struct {
	MerchantReference string
	Currency          enums.Currency
	AmountMinor       int64
	Description       string
	CallbackURL       string
	NotificationID    string
	Billing           BillingAddress
}

type submitOrderRequest struct {
	ID             string         `json:"id"`
	Currency       string         `json:"currency"`
	Amount         json.Number    `json:"amount"`
	Description    string         `json:"description"`
	CallbackURL    string         `json:"callback_url"`
	NotificationID string         `json:"notification_id"`
	BillingAddress BillingAddress `json:"billing_address"`
}

// SubmitOrderResponse carries the hosted-page redirect and Pesapal's
// tracking id for the submitted order.
type SubmitOrderResponse struct {
	RedirectURL     string `json:"redirect_url"`
	OrderTrackingID string `json:"order_tracking_id"`
	Status          string `json:"status"`
	ErrorMessage    string `json:"error,omitempty"`
}

// SubmitOrderRequest registers the order with Pesapal and returns the
// hosted payment page URL.
func (c *Client) SubmitOrderRequest(ctx context.Context, token string, params SubmitOrderParams) (*SubmitOrderResponse, error) {
	if params.NotificationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "pesapal notification channel id is not configured")
	}

	req := submitOrderRequest{
		ID:             params.MerchantReference,
		Currency:       string(params.Currency),
		Amount:         json.Number(MajorUnits(params.AmountMinor).String()),
		Description:    params.Description,
		CallbackURL:    params.CallbackURL,
		NotificationID: params.NotificationID,
		BillingAddress: params.Billing,
	}

	var resp SubmitOrderResponse
	if err := c.postJSON(ctx, "/api/Transactions/SubmitOrderRequest", token, req, &resp); err != nil {
		return nil, err
	}
	if resp.RedirectURL == "" {
		msg := resp.ErrorMessage
		if msg == "" {
			msg = "no redirect url in response"
		}
		return nil, pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("pesapal submit order: %s", msg))
	}
	return &resp, nil
}

// TransactionStatus is the canonical verdict for a tracked order. It is the
// only source of truth for IPN handling; the notification payload's own
// claims are never trusted.
type TransactionStatus struct {
	PaymentStatusDescription string          `json:"payment_status_description"`
	Amount                   decimal.Decimal `json:"amount"`
	Currency                 string          `json:"currency"`
	MerchantReference        string          `json:"merchant_reference"`
	PaymentMethod            string          `json:"payment_method"`
	ConfirmationCode         string          `json:"confirmation_code"`
}

// Outcome maps Pesapal's status descriptions onto the normalized verdict.
// Pesapal reports COMPLETED, FAILED, INVALID, or REVERSED.
func (s *TransactionStatus) Outcome() enums.PaymentOutcomeKind {
	switch strings.ToLower(strings.TrimSpace(s.PaymentStatusDescription)) {
	case "completed":
		return enums.PaymentOutcomeSuccess
	case "failed", "invalid", "reversed":
		return enums.PaymentOutcomeFailed
	default:
		return enums.PaymentOutcomePending
	}
}

// AmountMinor converts the major-unit decimal amount to minor units.
func (s *TransactionStatus) AmountMinor() int64 {
	return s.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// GetTransactionStatus queries the canonical state of a tracked order.
func (c *Client) GetTransactionStatus(ctx context.Context, trackingID, token string) (*TransactionStatus, error) {
	endpoint := "/api/Transactions/GetTransactionStatus?orderTrackingId=" + url.QueryEscape(trackingID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "pesapal: build status request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	var status TransactionStatus
	if err := c.do(httpReq, "get transaction status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// MajorUnits converts minor units to the major-unit decimal Pesapal expects.
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
}

func (c *Client) postJSON(ctx context.Context, path, token string, body, dest any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pesapal: encode request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "pesapal: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	return c.do(httpReq, path, dest)
}

func (c *Client) do(req *http.Request, op string, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, fmt.Sprintf("pesapal %s", op))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, fmt.Sprintf("pesapal %s: read response", op))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logUpstreamFailure(req.Context(), op, resp.StatusCode, raw)
		return pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("pesapal %s: upstream status %d", op, resp.StatusCode)).
			WithDetails(map[string]any{"status": resp.StatusCode, "body": truncate(raw)})
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, fmt.Sprintf("pesapal %s: decode response", op))
	}
	return nil
}

func (c *Client) logUpstreamFailure(ctx context.Context, op string, status int, body []byte) {
	if c.logger == nil {
		return
	}
	ctx = c.logger.WithFields(ctx, map[string]any{
		"op":     op,
		"status": status,
		"body":   truncate(body),
	})
	c.logger.Warn(ctx, "pesapal upstream failure")
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = liveEnv
	}
	switch env {
	case sandboxEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidPesapalEnv
	}
}
