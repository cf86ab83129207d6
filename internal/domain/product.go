package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string
	Title       string
	Description string
	Code        string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Thumbnail   string
	OwnerID     string // empty for admin-owned products
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
