package payments

import (
	"github.com/google/uuid"

	"github.com/opulentlabs/storefront-backend/pkg/enums"
)

// CartItemInput is one line of the client cart. Prices are never read from
// the client.
type CartItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,gt=0"`
	Size      *string   `json:"size,omitempty"`
	Color     *string   `json:"color,omitempty"`
}

// CustomerInput identifies the buyer.
type CustomerInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required"`
}

// DeliveryInput selects pickup or zoned delivery.
type DeliveryInput struct {
	Type    enums.DeliveryType `json:"type" validate:"required"`
	ZoneID  *uuid.UUID         `json:"zone_id,omitempty"`
	Address *string            `json:"address,omitempty"`
}

// CreateOrderInput is the request for the inline-checkout path.
type CreateOrderInput struct {
	Customer CustomerInput   `json:"customer" validate:"required"`
	Delivery DeliveryInput   `json:"delivery" validate:"required"`
	Items    []CartItemInput `json:"items" validate:"required,min=1,dive"`
}

// CreateOrderResult carries everything the browser needs to launch the
// inline popup: the reference it must pass to the gateway and the amount in
// minor units.
type CreateOrderResult struct {
	OrderID     uuid.UUID      `json:"order_id"`
	Reference   string         `json:"reference"`
	AmountMinor int64          `json:"amount"`
	Currency    enums.Currency `json:"currency"`
	Email       string         `json:"email"`
}

// InitializeInput is the request for the hosted-page path. The redirect flow
// is delivery-only.
type InitializeInput struct {
	Customer CustomerInput   `json:"customer" validate:"required"`
	ZoneID   uuid.UUID       `json:"zone_id" validate:"required"`
	Address  string          `json:"address" validate:"required"`
	Items    []CartItemInput `json:"items" validate:"required,min=1,dive"`
}

// InitializeResult carries the hosted payment page link.
type InitializeResult struct {
	OrderID   uuid.UUID `json:"order_id"`
	Reference string    `json:"reference"`
	Link      string    `json:"link"`
}

// VerifyResult reports the settled order for the verify path.
type VerifyResult struct {
	OrderID uuid.UUID `json:"order_id"`
	Status  string    `json:"status"`
}

// IPNParams are the identifiers delivered by an instant payment
// notification.
type IPNParams struct {
	OrderTrackingID   string
	MerchantReference string
	NotificationType  string
}

// IPNResult is what the webhook controller turns into the acknowledgement
// body. OK=false asks the gateway to redeliver.
type IPNResult struct {
	OK               bool
	NotificationType string
	TrackingID       string
}
