package enums

// PaymentOutcomeKind is the normalized verdict both gateway adapters map
// their raw statuses into. The reconciliation engine only ever branches on
// this, never on gateway-specific status strings.
type PaymentOutcomeKind string

const (
	PaymentOutcomeSuccess PaymentOutcomeKind = "success"
	PaymentOutcomeFailed  PaymentOutcomeKind = "failed"
	PaymentOutcomePending PaymentOutcomeKind = "pending"
)
