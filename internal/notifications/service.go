package notifications

import (
	"context"
	"fmt"

	"github.com/opulentlabs/storefront-backend/pkg/config"
	"github.com/opulentlabs/storefront-backend/pkg/db/models"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
)

// Service sends the order lifecycle emails. Sends are best-effort: a mail
// failure is logged and swallowed so it can never undo or block a payment
// outcome.
type Service interface {
	OrderPaid(ctx context.Context, order *models.Order)
}

type service struct {
	mailer     Mailer
	adminEmail string
	logger     *logger.Logger
}

// NewService wires the notifier.
func NewService(mailer Mailer, cfg config.PaymentsConfig, logg *logger.Logger) (Service, error) {
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{mailer: mailer, adminEmail: cfg.AdminEmail, logger: logg}, nil
}

// OrderPaid sends the customer confirmation and the admin alert for a newly
// settled order.
func (s *service) OrderPaid(ctx context.Context, order *models.Order) {
	ctx = s.logger.WithOrderID(ctx, order.ID.String())

	subject := fmt.Sprintf("Order Confirmed - #%s", shortID(order))
	if err := s.mailer.Send(ctx, order.Email, subject, customerConfirmationHTML(order)); err != nil {
		s.logger.Warn(ctx, "failed to send customer confirmation email")
	}

	if s.adminEmail == "" {
		return
	}
	subject = fmt.Sprintf("New Paid Order - #%s", shortID(order))
	if err := s.mailer.Send(ctx, s.adminEmail, subject, adminAlertHTML(order)); err != nil {
		s.logger.Warn(ctx, "failed to send admin alert email")
	}
}

func shortID(order *models.Order) string {
	id := order.ID.String()
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}
