package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/catalog"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
)

func price(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPrice_AllLinesResolve(t *testing.T) {
	items := []domain.CartItem{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	}
	snapshot := map[string]catalog.Entry{
		"p1": {UnitPrice: price("10.00"), Stock: 5},
		"p2": {UnitPrice: price("25.00"), Stock: 1},
	}

	result := Price(items, snapshot)

	require.Len(t, result.Lines, 2)
	assert.True(t, result.FullyResolved())
	assert.False(t, result.NothingResolved())

	assert.True(t, result.Lines[0].Resolved)
	assert.True(t, result.Lines[0].LineAmount.Equal(price("20.00")))
	assert.True(t, result.Lines[1].Resolved)
	assert.True(t, result.Lines[1].LineAmount.Equal(price("25.00")))
	assert.True(t, result.Total.Equal(price("45.00")))
}

func TestPrice_InsufficientStock(t *testing.T) {
	items := []domain.CartItem{{ProductID: "p3", Quantity: 3}}
	snapshot := map[string]catalog.Entry{
		"p3": {UnitPrice: price("5.00"), Stock: 1},
	}

	result := Price(items, snapshot)

	require.Len(t, result.Lines, 1)
	assert.False(t, result.FullyResolved())
	assert.True(t, result.NothingResolved())
	assert.Equal(t, ReasonInsufficientStock, result.Lines[0].Reason)
	assert.True(t, result.Total.IsZero())
}

func TestPrice_ProductMissing(t *testing.T) {
	items := []domain.CartItem{{ProductID: "p9", Quantity: 1}}

	result := Price(items, map[string]catalog.Entry{})

	require.Len(t, result.Lines, 1)
	assert.Equal(t, ReasonProductMissing, result.Lines[0].Reason)
	assert.True(t, result.NothingResolved())
}

func TestPrice_MixedResolutionKeepsPartialTotal(t *testing.T) {
	items := []domain.CartItem{
		{ProductID: "ok", Quantity: 1},
		{ProductID: "gone", Quantity: 2},
	}
	snapshot := map[string]catalog.Entry{
		"ok": {UnitPrice: price("9.99"), Stock: 10},
	}

	result := Price(items, snapshot)

	assert.False(t, result.FullyResolved())
	assert.False(t, result.NothingResolved())
	require.Len(t, result.Rejected(), 1)
	assert.Equal(t, "gone", result.Rejected()[0].ProductID)
	// Total covers resolved lines only.
	assert.True(t, result.Total.Equal(price("9.99")))
}

func TestPrice_DecimalArithmeticIsExact(t *testing.T) {
	// 0.10 * 3 must be exactly 0.30; float64 would drift.
	items := []domain.CartItem{{ProductID: "p", Quantity: 3}}
	snapshot := map[string]catalog.Entry{
		"p": {UnitPrice: price("0.10"), Stock: 3},
	}

	result := Price(items, snapshot)

	assert.True(t, result.Total.Equal(price("0.30")))
	assert.Equal(t, "0.30", result.Total.StringFixed(2))
}

func TestPrice_StockExactlyEqualToQuantityResolves(t *testing.T) {
	items := []domain.CartItem{{ProductID: "p", Quantity: 4}}
	snapshot := map[string]catalog.Entry{
		"p": {UnitPrice: price("2.50"), Stock: 4},
	}

	result := Price(items, snapshot)

	assert.True(t, result.FullyResolved())
	assert.True(t, result.Total.Equal(price("10.00")))
}

func TestPurchaseLines_CopiesPriceByValue(t *testing.T) {
	items := []domain.CartItem{{ProductID: "p", Quantity: 2}}
	snapshot := map[string]catalog.Entry{
		"p": {UnitPrice: price("7.25"), Stock: 2},
	}

	lines := Price(items, snapshot).PurchaseLines()

	require.Len(t, lines, 1)
	assert.Equal(t, "p", lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, lines[0].UnitPrice.Equal(price("7.25")))
	assert.True(t, lines[0].LineAmount.Equal(price("14.50")))
}
