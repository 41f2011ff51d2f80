package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opulentlabs/storefront-backend/internal/catalog"
	"github.com/opulentlabs/storefront-backend/internal/inventory"
	"github.com/opulentlabs/storefront-backend/internal/notifications"
	"github.com/opulentlabs/storefront-backend/internal/orders"
	"github.com/opulentlabs/storefront-backend/internal/pricing"
	"github.com/opulentlabs/storefront-backend/pkg/config"
	"github.com/opulentlabs/storefront-backend/pkg/db/models"
	"github.com/opulentlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/opulentlabs/storefront-backend/pkg/errors"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
	"github.com/opulentlabs/storefront-backend/pkg/metrics"
	"github.com/opulentlabs/storefront-backend/pkg/paystack"
	"github.com/opulentlabs/storefront-backend/pkg/pesapal"
)

const (
	pathVerify = "verify"
	pathIPN    = "ipn"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PesapalGateway is the slice of the Pesapal client the engine needs.
type PesapalGateway interface {
	RequestToken(ctx context.Context) (string, error)
	SubmitOrderRequest(ctx context.Context, token string, params pesapal.SubmitOrderParams) (*pesapal.SubmitOrderResponse, error)
	GetTransactionStatus(ctx context.Context, trackingID, token string) (*pesapal.TransactionStatus, error)
	IPNID() string
}

// PaystackGateway is the slice of the Paystack client the engine needs.
type PaystackGateway interface {
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// Service is the checkout and reconciliation engine: it creates pending
// orders, hands them to a gateway, and folds gateway outcomes back into
// order state and stock levels.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	Initialize(ctx context.Context, input InitializeInput) (*InitializeResult, error)
	VerifyPayment(ctx context.Context, reference string) (*VerifyResult, error)
	HandleIPN(ctx context.Context, params IPNParams) (*IPNResult, error)
}

type service struct {
	repo      orders.Repository
	catalog   catalog.Service
	pricing   pricing.Service
	inventory inventory.Service
	notifier  notifications.Service
	pesapal   PesapalGateway
	paystack  PaystackGateway
	tx        txRunner
	metrics   *metrics.PaymentMetrics
	cfg       config.PaymentsConfig
	baseURL   string
	logger    *logger.Logger
}

// Deps carries the engine's collaborators.
type Deps struct {
	Repo      orders.Repository
	Catalog   catalog.Service
	Pricing   pricing.Service
	Inventory inventory.Service
	Notifier  notifications.Service
	Pesapal   PesapalGateway
	Paystack  PaystackGateway
	Tx        txRunner
	Metrics   *metrics.PaymentMetrics
	Payments  config.PaymentsConfig
	BaseURL   string
	Logger    *logger.Logger
}

// NewService wires the payment engine.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Catalog == nil:
		return nil, fmt.Errorf("catalog service required")
	case deps.Pricing == nil:
		return nil, fmt.Errorf("pricing service required")
	case deps.Inventory == nil:
		return nil, fmt.Errorf("inventory service required")
	case deps.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	case deps.Pesapal == nil:
		return nil, fmt.Errorf("pesapal gateway required")
	case deps.Paystack == nil:
		return nil, fmt.Errorf("paystack gateway required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}

	return &service{
		repo:      deps.Repo,
		catalog:   deps.Catalog,
		pricing:   deps.Pricing,
		inventory: deps.Inventory,
		notifier:  deps.Notifier,
		pesapal:   deps.Pesapal,
		paystack:  deps.Paystack,
		tx:        deps.Tx,
		metrics:   deps.Metrics,
		cfg:       deps.Payments,
		baseURL:   strings.TrimRight(deps.BaseURL, "/"),
		logger:    deps.Logger,
	}, nil
}

// CreateOrder validates the cart, prices it, and persists a Pending order
// for the inline-checkout path. The response carries the reference and
// minor-unit amount the browser passes to the gateway popup.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if err := validateDelivery(input.Delivery); err != nil {
		return nil, err
	}

	order, err := s.buildPendingOrder(ctx, input.Customer, input.Delivery, input.Items)
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithReference(ctx, order.MerchantReference)
	s.logger.Info(ctx, "pending order created")

	return &CreateOrderResult{
		OrderID:     order.ID,
		Reference:   order.MerchantReference,
		AmountMinor: order.TotalCents,
		Currency:    order.Currency,
		Email:       order.Email,
	}, nil
}

// Initialize runs the same pipeline for the hosted-page path and then
// registers the order with Pesapal. The order stays Pending if the gateway
// call fails; the customer can retry checkout with a fresh order.
func (s *service) Initialize(ctx context.Context, input InitializeInput) (*InitializeResult, error) {
	delivery := DeliveryInput{
		Type:    enums.DeliveryTypeDelivery,
		ZoneID:  &input.ZoneID,
		Address: &input.Address,
	}
	if err := validateDelivery(delivery); err != nil {
		return nil, err
	}

	order, err := s.buildPendingOrder(ctx, input.Customer, delivery, input.Items)
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithReference(ctx, order.MerchantReference)

	token, err := s.pesapal.RequestToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.pesapal.SubmitOrderRequest(ctx, token, pesapal.SubmitOrderParams{
		MerchantReference: order.MerchantReference,
		Currency:          order.Currency,
		AmountMinor:       order.TotalCents,
		Description:       fmt.Sprintf("Order %s", order.MerchantReference),
		CallbackURL:       s.baseURL + "/payment/callback",
		NotificationID:    s.pesapal.IPNID(),
		Billing:           billingAddress(order),
	})
	if err != nil {
		return nil, err
	}

	if resp.OrderTrackingID != "" {
		if err := s.repo.UpdateTrackingID(ctx, order.ID, resp.OrderTrackingID); err != nil {
			s.logger.Error(ctx, "failed to store gateway tracking id", err)
		}
	}

	s.logger.Info(ctx, "order submitted for hosted payment")

	return &InitializeResult{
		OrderID:   order.ID,
		Reference: order.MerchantReference,
		Link:      resp.RedirectURL,
	}, nil
}

// VerifyPayment reconciles an inline-checkout transaction. The client's
// success callback only names the reference; the verdict comes from the
// gateway.
func (s *service) VerifyPayment(ctx context.Context, reference string) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	ctx = s.logger.WithReference(ctx, reference)

	verdict, err := s.paystack.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}

	if verdict.Outcome() != enums.PaymentOutcomeSuccess {
		s.failByReference(ctx, reference, &verdict.TransactionID)
		s.metrics.IncFailed(pathVerify)
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "payment was not successful").
			WithDetails(map[string]any{"gateway_status": verdict.Status})
	}

	order, err := s.repo.FindByMerchantReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up order")
	}

	ctx = s.logger.WithOrderID(ctx, order.ID.String())

	if order.Status.IsProcessed() {
		s.metrics.IncDuplicate(pathVerify)
		s.logger.Info(ctx, "payment already processed, acknowledging")
		return &VerifyResult{OrderID: order.ID, Status: string(order.Status)}, nil
	}

	if !s.amountWithinTolerance(verdict.AmountMinor, order.TotalCents) {
		s.metrics.IncAmountMismatch(pathVerify)
		s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
			"paid":     verdict.AmountMinor,
			"expected": order.TotalCents,
		}), "payment amount outside tolerance")
		return nil, pkgerrors.New(pkgerrors.CodeAmountMismatch, "paid amount does not match order total")
	}

	if _, err := s.settle(ctx, order, &verdict.TransactionID, pathVerify); err != nil {
		return nil, err
	}

	return &VerifyResult{OrderID: order.ID, Status: string(order.Status)}, nil
}

// HandleIPN reconciles an asynchronous Pesapal notification. The payload is
// only an identifier; the canonical verdict is re-queried from the gateway.
// A returned error is a permanent rejection the webhook maps to an HTTP
// status; OK=false in the result asks Pesapal to redeliver.
func (s *service) HandleIPN(ctx context.Context, params IPNParams) (*IPNResult, error) {
	if params.OrderTrackingID == "" || params.MerchantReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification is missing tracking id or merchant reference")
	}

	ctx = s.logger.WithReference(ctx, params.MerchantReference)
	ctx = s.logger.WithField(ctx, "tracking_id", params.OrderTrackingID)

	result := &IPNResult{
		NotificationType: params.NotificationType,
		TrackingID:       params.OrderTrackingID,
	}

	token, err := s.pesapal.RequestToken(ctx)
	if err != nil {
		s.logger.Error(ctx, "ipn: token fetch failed, requesting redelivery", err)
		return result, nil
	}

	status, err := s.pesapal.GetTransactionStatus(ctx, params.OrderTrackingID, token)
	if err != nil {
		s.logger.Error(ctx, "ipn: status query failed, requesting redelivery", err)
		return result, nil
	}

	order, err := s.repo.FindByMerchantReference(ctx, params.MerchantReference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for notification")
		}
		s.logger.Error(ctx, "ipn: order lookup failed, requesting redelivery", err)
		return result, nil
	}

	ctx = s.logger.WithOrderID(ctx, order.ID.String())

	if status.MerchantReference != "" && status.MerchantReference != order.MerchantReference {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "notification does not belong to this order").
			WithDetails(map[string]any{"gateway_reference": status.MerchantReference})
	}

	switch status.Outcome() {
	case enums.PaymentOutcomeSuccess:
		if order.Status.IsProcessed() {
			s.metrics.IncDuplicate(pathIPN)
			s.logger.Info(ctx, "ipn: payment already processed, acknowledging")
			result.OK = true
			return result, nil
		}

		if !s.amountWithinTolerance(status.AmountMinor(), order.TotalCents) {
			s.metrics.IncAmountMismatch(pathIPN)
			s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
				"paid":     status.AmountMinor(),
				"expected": order.TotalCents,
			}), "ipn: payment amount outside tolerance, requesting redelivery")
			return result, nil
		}

		trackingID := params.OrderTrackingID
		if _, err := s.settle(ctx, order, &trackingID, pathIPN); err != nil {
			s.logger.Error(ctx, "ipn: settlement failed, requesting redelivery", err)
			return result, nil
		}
		result.OK = true
		return result, nil

	case enums.PaymentOutcomeFailed:
		trackingID := params.OrderTrackingID
		if err := s.repo.MarkFailed(ctx, order.ID, &trackingID); err != nil {
			s.logger.Error(ctx, "ipn: mark failed errored, requesting redelivery", err)
			return result, nil
		}
		s.metrics.IncFailed(pathIPN)
		s.logger.Info(ctx, "ipn: payment failed, order marked")
		result.OK = true
		return result, nil

	default:
		// still pending at the gateway, nothing to record yet
		s.logger.Info(ctx, "ipn: payment still pending at gateway")
		result.OK = true
		return result, nil
	}
}

// settle is the shared critical section: the conditional Paid claim and the
// stock decrement commit or roll back together. Emails only go out after
// the transaction commits, and only for the caller that won the claim.
func (s *service) settle(ctx context.Context, order *models.Order, trackingID *string, path string) (bool, error) {
	var claimed bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		won, err := repo.ClaimPaid(ctx, order.ID, trackingID)
		if err != nil {
			return err
		}
		claimed = won
		if !won {
			return nil
		}
		return s.inventory.ApplyDecrement(ctx, tx, order)
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settling payment")
	}

	if !claimed {
		s.metrics.IncDuplicate(path)
		// another path settled first; pick up the status it wrote so the
		// caller does not report the stale pre-claim one
		if fresh, ferr := s.repo.FindByID(ctx, order.ID); ferr == nil {
			order.Status = fresh.Status
		}
		s.logger.Info(ctx, "payment claim lost, another notification settled first")
		return false, nil
	}

	order.Status = enums.OrderStatusPaid
	if trackingID != nil && *trackingID != "" {
		order.GatewayTrackingID = trackingID
	}

	s.metrics.IncReconciled(path)
	s.logger.Info(ctx, "payment settled, inventory decremented")
	s.notifier.OrderPaid(ctx, order)
	return true, nil
}

// failByReference marks the order Failed if it exists. A missing order is
// not an error on this path: the verdict was negative either way.
func (s *service) failByReference(ctx context.Context, reference string, trackingID *string) {
	order, err := s.repo.FindByMerchantReference(ctx, reference)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error(ctx, "failed to look up order for failed payment", err)
		}
		return
	}
	if err := s.repo.MarkFailed(ctx, order.ID, trackingID); err != nil {
		s.logger.Error(ctx, "failed to mark order failed", err)
	}
}

func (s *service) amountWithinTolerance(paidMinor, expectedMinor int64) bool {
	diff := paidMinor - expectedMinor
	if diff < 0 {
		diff = -diff
	}
	return diff <= s.cfg.AmountToleranceMinor
}

// buildPendingOrder runs the shared creation pipeline: validate stock,
// price the cart, and persist order plus items atomically.
func (s *service) buildPendingOrder(ctx context.Context, customer CustomerInput, delivery DeliveryInput, items []CartItemInput) (*models.Order, error) {
	lines := make([]catalog.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, catalog.CartLine{
			ProductID: item.ProductID,
			Qty:       item.Qty,
			Size:      item.Size,
			Color:     item.Color,
		})
	}

	validated, subtotal, err := s.catalog.ValidateCart(ctx, lines)
	if err != nil {
		return nil, err
	}

	totals, err := s.pricing.ComputeTotals(ctx, subtotal, delivery.Type, delivery.ZoneID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		MerchantReference: pricing.NewMerchantReference(),
		CustomerName:      customer.Name,
		Email:             customer.Email,
		Phone:             customer.Phone,
		DeliveryType:      delivery.Type,
		DeliveryZoneID:    delivery.ZoneID,
		DeliveryArea:      totals.ZoneName,
		DeliveryAddress:   delivery.Address,
		DeliveryFeeCents:  totals.DeliveryFeeCents,
		SubtotalCents:     totals.SubtotalCents,
		TotalCents:        totals.TotalCents,
		Currency:          enums.Currency(s.cfg.Currency),
		Status:            enums.OrderStatusPending,
	}
	for _, line := range validated {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:      line.ProductID,
			ProductName:    line.ProductName,
			Size:           line.Size,
			Color:          line.Color,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			TotalCents:     line.TotalCents,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).CreateWithItems(ctx, order)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
	}
	return order, nil
}

func validateDelivery(delivery DeliveryInput) error {
	if !delivery.Type.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery type must be delivery or pickup")
	}
	if delivery.Type == enums.DeliveryTypeDelivery {
		if delivery.ZoneID == nil || *delivery.ZoneID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery zone is required for delivery orders")
		}
		if delivery.Address == nil || strings.TrimSpace(*delivery.Address) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required for delivery orders")
		}
	}
	return nil
}

// billingAddress maps the order's customer snapshot onto Pesapal's payload.
func billingAddress(order *models.Order) pesapal.BillingAddress {
	first, last := splitName(order.CustomerName)
	addr := pesapal.BillingAddress{
		EmailAddress: order.Email,
		PhoneNumber:  order.Phone,
		CountryCode:  "KE",
		FirstName:    first,
		LastName:     last,
	}
	if order.DeliveryAddress != nil {
		addr.Line1 = *order.DeliveryAddress
	}
	if order.DeliveryArea != nil {
		addr.Line2 = *order.DeliveryArea
	}
	return addr
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
