package repository

import (
	"context"
	"errors"
	"time"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrCartEmpty       = errors.New("cart must have at least one item")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrStatusConflict  = errors.New("cart status did not match expected status")
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
)

// CartRepository defines the interface for cart data operations.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	CreateCart(ctx context.Context, cart *domain.Cart) (string, error)
	ListCarts(ctx context.Context, limit int) ([]*domain.Cart, error)
	ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem) error
	AddItem(ctx context.Context, cartID string, item domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, cartID string, productID string, quantity int) error
	RemoveItem(ctx context.Context, cartID string, productID string) error

	// CompareAndSetStatus transitions the cart status only if the stored
	// status equals expected. Returns ErrStatusConflict when another caller
	// won the transition, ErrCartNotFound when the cart does not exist.
	CompareAndSetStatus(ctx context.Context, cartID string, expected, next domain.CartStatus) error
}

type ProductPage struct {
	Products   []*domain.Product
	Page       int
	TotalPages int
	Total      int64
}

type ProductRepository interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context, page, limit int, sort string) (*ProductPage, error)
	CreateProduct(ctx context.Context, product *domain.Product) (string, error)
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, productID string) (*domain.Product, error)

	// SnapshotByIDs returns price and stock for every requested product that
	// still exists; deleted products are absent from the result.
	SnapshotByIDs(ctx context.Context, productIDs []string) (map[string]ProductSnapshot, error)
}

type ProductSnapshot struct {
	UnitPrice decimal.Decimal
	Stock     int
}

type UserPage struct {
	Users      []*domain.User
	Page       int
	TotalPages int
	Total      int64
}

type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetEmail(ctx context.Context, userID string) (string, error)
	ListUsers(ctx context.Context, page, limit int, sort string) (*UserPage, error)
	CreateUser(ctx context.Context, user *domain.User) (string, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, userID string) error
	SetRole(ctx context.Context, userID string, role domain.UserRole) error
	AppendDocuments(ctx context.Context, userID string, docs []domain.UserDocument) error
	DeleteInactive(ctx context.Context, before time.Time) (int64, error)
}
