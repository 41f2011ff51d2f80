package catalog

import "github.com/google/uuid"

// CartLine is one requested line from the client cart. Size and color are
// optional variant keys; nil means the base variant.
type CartLine struct {
	ProductID uuid.UUID
	Qty       int
	Size      *string
	Color     *string
}

// ValidatedLine is a cart line after stock and price validation. Name and
// unit price are server-side snapshots; client-sent prices are ignored.
type ValidatedLine struct {
	ProductID      uuid.UUID
	ProductName    string
	Size           *string
	Color          *string
	Qty            int
	UnitPriceCents int64
	TotalCents     int64
}
