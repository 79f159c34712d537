package models

import "github.com/shopspring/decimal"

// Order is a finalized POS sale waiting to be turned into manufacturing work.
// Orders are immutable once received and are consumed exactly once.
type Order struct {
	Name       string      `json:"name" binding:"required"`
	UID        string      `json:"uid"`
	UniqueName string      `json:"unique_name"`
	OrderLines []OrderLine `json:"orderlines"`
}

type OrderLine struct {
	CustomUID       *string        `json:"custom_uid"`
	ProductID       int            `json:"product_id"`
	Options         ProductOptions `json:"options"`
	ExtraComponents []Component    `json:"extra_components"`
}

type ProductOptions struct {
	Quantity    *int     `json:"quantity"`
	Price       *float64 `json:"price"`
	Description *string  `json:"description"`
}

// Component is a bill-of-materials line attached to a production item.
type Component struct {
	ID          int             `json:"id"`
	DisplayName string          `json:"display_name"`
	Qty         decimal.Decimal `json:"qty"`
}

func (c Component) Equal(o Component) bool {
	return c.ID == o.ID && c.DisplayName == o.DisplayName && c.Qty.Equal(o.Qty)
}
