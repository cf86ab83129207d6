package checkout

import (
	"errors"
	"fmt"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/pricing"
)

var (
	// ErrCartNotFound: no cart with the given ID; terminal.
	ErrCartNotFound = errors.New("cart not found")

	// ErrCartNotActive: the cart was already purchased (possibly by a
	// concurrent call) or is otherwise not purchasable; terminal. A caller
	// retrying its own earlier request should treat this as "already done".
	ErrCartNotActive = errors.New("cart is not active")

	// ErrCatalogUnavailable: transient snapshot failure; the whole purchase
	// is safe to retry, nothing was committed.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrPurchaserNotFound: the cart owner has no user record to bill.
	ErrPurchaserNotFound = errors.New("purchaser not found")
)

// LineRejection reports one cart line that failed validation.
type LineRejection struct {
	ProductID string               `json:"product_id"`
	Quantity  int                  `json:"quantity"`
	Reason    pricing.RejectReason `json:"reason"`
}

// PricingRejectedError aborts the whole checkout under the all-or-nothing
// policy. No ticket was created and the cart stays active.
type PricingRejectedError struct {
	Rejections []LineRejection
	// NothingPurchasable is set when not a single line resolved.
	NothingPurchasable bool
}

func (e *PricingRejectedError) Error() string {
	if e.NothingPurchasable {
		return fmt.Sprintf("pricing rejected: nothing purchasable (%d lines)", len(e.Rejections))
	}
	return fmt.Sprintf("pricing rejected: %d of the cart's lines failed validation", len(e.Rejections))
}

// TicketIssuanceError means the durable ticket write failed after the cart
// was claimed. RolledBack reports whether the cart was returned to active.
type TicketIssuanceError struct {
	Err        error
	RolledBack bool
}

func (e *TicketIssuanceError) Error() string {
	return fmt.Sprintf("ticket issuance failed (cart rolled back: %t): %v", e.RolledBack, e.Err)
}

func (e *TicketIssuanceError) Unwrap() error {
	return e.Err
}
