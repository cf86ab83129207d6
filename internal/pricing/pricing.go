// Package pricing turns cart line items and a catalog snapshot into priced
// purchase lines. Price is a pure function of its inputs; all arithmetic is
// decimal, never binary floating point.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/catalog"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
)

// RejectReason says why a line could not be fulfilled.
type RejectReason string

const (
	ReasonProductMissing    RejectReason = "product-missing"
	ReasonInsufficientStock RejectReason = "insufficient-stock"
)

// Line is the pricing outcome for a single cart item. Either Resolved is true
// and the price fields are set, or Reason holds the rejection.
type Line struct {
	ProductID  string
	Quantity   int
	Resolved   bool
	UnitPrice  decimal.Decimal
	LineAmount decimal.Decimal
	Reason     RejectReason
}

type Result struct {
	Lines []Line
	Total decimal.Decimal
}

// FullyResolved reports whether every line can be fulfilled.
func (r *Result) FullyResolved() bool {
	for _, l := range r.Lines {
		if !l.Resolved {
			return false
		}
	}
	return true
}

// NothingResolved distinguishes "nothing purchasable" from a partial reject.
func (r *Result) NothingResolved() bool {
	for _, l := range r.Lines {
		if l.Resolved {
			return false
		}
	}
	return true
}

// Rejected returns the rejected lines only.
func (r *Result) Rejected() []Line {
	var rejected []Line
	for _, l := range r.Lines {
		if !l.Resolved {
			rejected = append(rejected, l)
		}
	}
	return rejected
}

// PurchaseLines converts the resolved lines into immutable purchase records.
func (r *Result) PurchaseLines() []domain.PurchaseLine {
	lines := make([]domain.PurchaseLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		if !l.Resolved {
			continue
		}
		lines = append(lines, domain.PurchaseLine{
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			LineAmount: l.LineAmount,
		})
	}
	return lines
}

// Price resolves every cart item against the snapshot. A product absent from
// the snapshot no longer exists; a present product with too little stock is
// rejected with insufficient-stock. Total sums resolved lines only.
func Price(items []domain.CartItem, snapshot map[string]catalog.Entry) *Result {
	result := &Result{
		Lines: make([]Line, 0, len(items)),
		Total: decimal.Zero,
	}

	for _, item := range items {
		line := Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}

		entry, exists := snapshot[item.ProductID]
		switch {
		case !exists:
			line.Reason = ReasonProductMissing
		case entry.Stock < item.Quantity:
			line.Reason = ReasonInsufficientStock
		default:
			line.Resolved = true
			line.UnitPrice = entry.UnitPrice
			line.LineAmount = entry.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			result.Total = result.Total.Add(line.LineAmount)
		}

		result.Lines = append(result.Lines, line)
	}

	return result
}
