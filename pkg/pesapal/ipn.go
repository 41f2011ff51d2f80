package pesapal

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Notification is an instant payment notification. Pesapal delivers it as a
// GET with query parameters or a POST with the same parameters in the body;
// either way it only identifies the transaction and never carries a verdict.
type Notification struct {
	OrderTrackingID   string `json:"OrderTrackingId"`
	MerchantReference string `json:"OrderMerchantReference"`
	NotificationType  string `json:"OrderNotificationType"`
}

// ParseNotification extracts the notification fields from any of Pesapal's
// delivery methods. Query parameters win; a POST body (JSON or form) is the
// fallback.
func ParseNotification(r *http.Request) Notification {
	n := fromValues(r.URL.Query())
	if n.OrderTrackingID != "" {
		return n
	}
	if r.Method != http.MethodPost {
		return n
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var body Notification
		if raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<16)); err == nil {
			if json.Unmarshal(raw, &body) == nil && body.OrderTrackingID != "" {
				return body
			}
		}
		return n
	}
	if err := r.ParseForm(); err == nil {
		if form := fromValues(r.PostForm); form.OrderTrackingID != "" {
			return form
		}
	}
	return n
}

func fromValues(v url.Values) Notification {
	return Notification{
		OrderTrackingID:   v.Get("OrderTrackingId"),
		MerchantReference: v.Get("OrderMerchantReference"),
		NotificationType:  v.Get("OrderNotificationType"),
	}
}

// Ack is the acknowledgement body Pesapal expects back from an IPN endpoint.
// Status 200 tells Pesapal to stop retrying; 500 requests a retry.
type Ack struct {
	OrderNotificationType string `json:"orderNotificationType"`
	OrderTrackingID       string `json:"orderTrackingId"`
	Status                int    `json:"status"`
}

// NewAck builds the acknowledgement for a processed notification.
func NewAck(n Notification, ok bool) Ack {
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}
	return Ack{
		OrderNotificationType: n.NotificationType,
		OrderTrackingID:       n.OrderTrackingID,
		Status:                status,
	}
}
