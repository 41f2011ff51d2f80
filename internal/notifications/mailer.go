package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opulentlabs/storefront-backend/pkg/config"
	pkgerrors "github.com/opulentlabs/storefront-backend/pkg/errors"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
)

const resendBaseURL = "https://api.resend.com"

// Mailer sends a single HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type resendMailer struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewMailer returns a Resend-backed mailer, or a logging no-op when no API
// key is configured so dev environments work without an account.
func NewMailer(cfg config.ResendConfig, logg *logger.Logger) Mailer {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		logg.Warn(context.Background(), "no resend api key configured, emails will only be logged")
		return &logMailer{logger: logg}
	}
	return &resendMailer{
		baseURL:    resendBaseURL,
		apiKey:     key,
		from:       cfg.DefaultFrom,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logg,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *resendMailer) Send(ctx context.Context, to, subject, html string) error {
	raw, err := json.Marshal(sendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode email")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build email request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send email")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("resend: status %d", resp.StatusCode)).
			WithDetails(map[string]any{"body": string(body)})
	}
	return nil
}

type logMailer struct {
	logger *logger.Logger
}

func (m *logMailer) Send(ctx context.Context, to, subject, _ string) error {
	ctx = m.logger.WithFields(ctx, map[string]any{"to": to, "subject": subject})
	m.logger.Info(ctx, "email suppressed (no mailer configured)")
	return nil
}
