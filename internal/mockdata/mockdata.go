// Package mockdata generates fake users and products for the mock endpoints
// and for seeding development databases.
package mockdata

import (
	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
)

func Users(qty int) []*domain.User {
	users := make([]*domain.User, 0, qty)
	for i := 0; i < qty; i++ {
		users = append(users, &domain.User{
			FirstName: gofakeit.FirstName(),
			LastName:  gofakeit.LastName(),
			Email:     gofakeit.Email(),
			Age:       gofakeit.Number(18, 90),
			Role:      domain.RoleUser,
		})
	}
	return users
}

func Products(qty int) []*domain.Product {
	products := make([]*domain.Product, 0, qty)
	for i := 0; i < qty; i++ {
		price := decimal.NewFromFloat(gofakeit.Price(1, 500)).Round(2)
		products = append(products, &domain.Product{
			Title:       gofakeit.ProductName(),
			Description: gofakeit.ProductDescription(),
			Code:        gofakeit.UUID(),
			Price:       price,
			Stock:       gofakeit.Number(0, 100),
			Category:    gofakeit.ProductCategory(),
		})
	}
	return products
}
