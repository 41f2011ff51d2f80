package enums

// Currency is the ISO 4217 code attached to an order. The storefront sells
// in Kenyan shillings only.
type Currency string

const (
	CurrencyKES Currency = "KES"
)
