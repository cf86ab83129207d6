// Package ticket issues immutable purchase records with globally unique codes.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/repository"
)

// maxAttempts bounds collision retries. A code keeps 20 hex chars of a v4
// UUID (76 random bits), so a second attempt is already vanishingly rare.
const maxAttempts = 5

// ErrExhausted is returned when every generation attempt collided, which in
// practice means the code store is misbehaving.
var ErrExhausted = errors.New("could not generate a unique ticket code")

// Store persists tickets durably before Issue returns. Save must reject a
// duplicate code with repository.ErrCodeTaken, never overwrite.
type Store interface {
	SaveTicket(ctx context.Context, ticket *domain.Ticket) error
}

type Issuer struct {
	store   Store
	now     func() time.Time
	newCode func() string
}

func NewIssuer(store Store) *Issuer {
	return &Issuer{
		store:   store,
		now:     time.Now,
		newCode: randomCode,
	}
}

// NewIssuerWithClock injects the clock and code source, for tests.
func NewIssuerWithClock(store Store, now func() time.Time, newCode func() string) *Issuer {
	return &Issuer{store: store, now: now, newCode: newCode}
}

// Issue persists a ticket for the purchase and returns it. Code collisions
// are retried with a fresh code and never surface to the caller.
func (i *Issuer) Issue(ctx context.Context, purchaser string, lines []domain.PurchaseLine, amount decimal.Decimal) (*domain.Ticket, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		t := &domain.Ticket{
			Code:        i.newCode(),
			PurchasedAt: i.now(),
			Purchaser:   purchaser,
			Amount:      amount,
			Lines:       lines,
		}

		err := i.store.SaveTicket(ctx, t)
		if err == nil {
			return t, nil
		}
		if errors.Is(err, repository.ErrCodeTaken) {
			continue
		}
		return nil, fmt.Errorf("failed to persist ticket: %w", err)
	}

	return nil, ErrExhausted
}

// randomCode draws from a collision-resistant random space, e.g.
// TKT-9F8B0C6A2D4E11EF8A3B. Uniqueness is still enforced by the store.
func randomCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TKT-" + strings.ToUpper(raw[:20])
}
