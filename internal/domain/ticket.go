package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseLine is a fulfilled cart line frozen at purchase time. The unit
// price is copied by value so the receipt survives later catalog changes.
type PurchaseLine struct {
	ProductID  string          `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineAmount decimal.Decimal `json:"line_amount"`
}

// Ticket is the immutable receipt of a completed purchase. Exactly one ticket
// exists per purchased cart; a ticket is never edited or deleted.
type Ticket struct {
	Code        string
	PurchasedAt time.Time
	Purchaser   string // email captured at purchase time, not a live reference
	Amount      decimal.Decimal
	Lines       []PurchaseLine
}
