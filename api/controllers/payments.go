package controllers

import (
	"net/http"

	"github.com/opulentlabs/storefront-backend/api/responses"
	"github.com/opulentlabs/storefront-backend/api/validators"
	"github.com/opulentlabs/storefront-backend/internal/payments"
	pkgerrors "github.com/opulentlabs/storefront-backend/pkg/errors"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
	"github.com/opulentlabs/storefront-backend/pkg/pesapal"
)

// CreateOrder creates a Pending order for the inline-checkout path and
// returns the reference and amount the browser hands to the payment popup.
func CreateOrder(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var input payments.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.CreateOrder(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// InitializePayment creates a Pending order and returns the hosted payment
// page link for the redirect path.
func InitializePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var input payments.InitializeInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Initialize(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type verifyRequest struct {
	Reference string `json:"reference" validate:"required"`
}

// VerifyPayment settles an inline-checkout transaction after the client's
// success callback.
func VerifyPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req verifyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.VerifyPayment(ctx, req.Reference)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PesapalWebhook receives instant payment notifications. Pesapal sends GET
// or POST with the same parameters and expects a fixed acknowledgement
// shape back, not the API's usual envelope.
func PesapalWebhook(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		n := pesapal.ParseNotification(r)
		result, err := svc.HandleIPN(ctx, payments.IPNParams{
			OrderTrackingID:   n.OrderTrackingID,
			MerchantReference: n.MerchantReference,
			NotificationType:  n.NotificationType,
		})
		if err != nil {
			// permanent rejection: malformed payload, unknown order, or a
			// reference mismatch
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteRaw(w, http.StatusOK, pesapal.NewAck(n, result.OK))
	}
}

// NotFound keeps unknown API paths on the JSON envelope.
func NotFound(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	}
}
