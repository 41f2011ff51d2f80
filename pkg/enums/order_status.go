package enums

// OrderStatus tracks the lifecycle of a storefront order.
//
// Payment-driven transitions (Pending→Paid, Pending|Paid→Failed) are owned
// by the reconciliation engine; the fulfillment transitions
// (Paid→Preparing→OutForDelivery→Delivered, Pending→Cancelled) belong to
// back-office tooling.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "Pending"
	OrderStatusPaid           OrderStatus = "Paid"
	OrderStatusPreparing      OrderStatus = "Preparing"
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusFailed         OrderStatus = "Failed"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

// ProcessedStatuses is the set of states in which a payment notification
// must be treated as already applied. The idempotency rule is "status is in
// this set", not "status == Paid": an order may already have moved into
// fulfillment by the time a late duplicate notification arrives.
func ProcessedStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPaid,
		OrderStatusPreparing,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
	}
}

// IsProcessed reports whether the status counts as payment-processed.
func (s OrderStatus) IsProcessed() bool {
	switch s {
	case OrderStatusPaid, OrderStatusPreparing, OrderStatusOutForDelivery, OrderStatusDelivered:
		return true
	default:
		return false
	}
}
