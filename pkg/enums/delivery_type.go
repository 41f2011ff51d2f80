package enums

// DeliveryType distinguishes door delivery from in-store pickup.
type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

// Valid reports whether the value is one of the supported delivery types.
func (d DeliveryType) Valid() bool {
	return d == DeliveryTypeDelivery || d == DeliveryTypePickup
}
