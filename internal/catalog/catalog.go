// Package catalog provides point-in-time reads of product price and stock for
// pricing decisions. A snapshot is not a lock: stock may change between the
// read and a later commit.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnavailable signals a transient backing-store failure. Nothing durable
// has happened yet when it is returned, so the whole operation is retryable.
var ErrUnavailable = errors.New("catalog temporarily unavailable")

// Entry is the snapshot of one product.
type Entry struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int             `json:"stock"`
}

// Reader returns an entry for every requested product that still exists.
// Deleted products are absent from the result, which is how deletion is
// signalled (distinct from zero stock).
type Reader interface {
	Snapshot(ctx context.Context, productIDs []string) (map[string]Entry, error)
}
