// Package checkout coordinates cart, catalog, pricing and ticket issuance
// into a single purchase transaction. It is the only place that mutates more
// than one entity per call.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/catalog"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/pricing"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/repository"
)

// CartStore is the slice of the cart repository the orchestrator needs. The
// compare-and-set is the sole serialization point for concurrent purchases of
// the same cart.
type CartStore interface {
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	CompareAndSetStatus(ctx context.Context, cartID string, expected, next domain.CartStatus) error
}

// UserDirectory resolves the purchaser identity captured on the ticket.
type UserDirectory interface {
	GetEmail(ctx context.Context, userID string) (string, error)
}

// TicketIssuer persists an immutable purchase record with a unique code.
type TicketIssuer interface {
	Issue(ctx context.Context, purchaser string, lines []domain.PurchaseLine, amount decimal.Decimal) (*domain.Ticket, error)
}

type Service struct {
	carts   CartStore
	users   UserDirectory
	catalog catalog.Reader
	issuer  TicketIssuer
}

func NewService(carts CartStore, users UserDirectory, reader catalog.Reader, issuer TicketIssuer) *Service {
	return &Service{
		carts:   carts,
		users:   users,
		catalog: reader,
		issuer:  issuer,
	}
}

// Purchase runs the checkout state machine for one cart:
//
//	load -> snapshot -> price -> claim (CAS active->purchased) -> issue ticket
//
// The cart is claimed before the ticket is written, so a concurrent duplicate
// loses the CAS and no orphan ticket can exist. If the ticket write itself
// fails the claim is rolled back to active.
//
// Policy is all-or-nothing: any rejected line aborts the purchase.
func (s *Service) Purchase(ctx context.Context, cartID string) (*domain.Ticket, error) {
	cart, err := s.carts.GetCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if !cart.Status.CanPurchase() {
		return nil, ErrCartNotActive
	}
	if len(cart.Items) == 0 {
		// A cart with no lines has nothing to buy; never issue a zero ticket.
		return nil, &PricingRejectedError{NothingPurchasable: true}
	}

	snapshot, err := s.catalog.Snapshot(ctx, cart.ProductIDs())
	if err != nil {
		if errors.Is(err, catalog.ErrUnavailable) {
			return nil, ErrCatalogUnavailable
		}
		return nil, fmt.Errorf("catalog snapshot: %w", err)
	}

	priced := pricing.Price(cart.Items, snapshot)
	if !priced.FullyResolved() {
		rejected := priced.Rejected()
		e := &PricingRejectedError{
			Rejections:         make([]LineRejection, 0, len(rejected)),
			NothingPurchasable: priced.NothingResolved(),
		}
		for _, line := range rejected {
			e.Rejections = append(e.Rejections, LineRejection{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Reason:    line.Reason,
			})
		}
		return nil, e
	}

	// Resolve the purchaser before claiming the cart; everything up to the
	// compare-and-set is free of durable effects and safe to retry.
	purchaser, err := s.users.GetEmail(ctx, cart.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrPurchaserNotFound
		}
		return nil, fmt.Errorf("resolve purchaser: %w", err)
	}

	err = s.carts.CompareAndSetStatus(ctx, cartID, domain.CartStatusActive, domain.CartStatusPurchased)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Another checkout won the cart between our load and the claim.
			return nil, ErrCartNotActive
		}
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("claim cart: %w", err)
	}

	tkt, err := s.issuer.Issue(ctx, purchaser, priced.PurchaseLines(), priced.Total)
	if err != nil {
		rolledBack := true
		rbErr := s.carts.CompareAndSetStatus(ctx, cartID, domain.CartStatusPurchased, domain.CartStatusActive)
		if rbErr != nil {
			rolledBack = false
			log.Printf("failed to roll back cart %s after issuance failure: %v", cartID, rbErr)
		}
		return nil, &TicketIssuanceError{Err: err, RolledBack: rolledBack}
	}

	log.Printf("cart %s purchased by %s, ticket %s amount %s", cartID, purchaser, tkt.Code, tkt.Amount.String())
	return tkt, nil
}
