package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/catalog"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/checkout"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/pricing"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/repository"
)

type cartRepoMock struct {
	cart      *domain.Cart
	createdID string
	err       error
}

func (m *cartRepoMock) GetCart(context.Context, string) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cart, nil
}

func (m *cartRepoMock) CreateCart(context.Context, *domain.Cart) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.createdID, nil
}

func (m *cartRepoMock) ListCarts(context.Context, int) ([]*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []*domain.Cart{m.cart}, nil
}

func (m *cartRepoMock) ReplaceItems(context.Context, string, []domain.CartItem) error {
	return m.err
}

func (m *cartRepoMock) AddItem(context.Context, string, domain.CartItem) error {
	return m.err
}

func (m *cartRepoMock) UpdateItemQuantity(context.Context, string, string, int) error {
	return m.err
}

func (m *cartRepoMock) RemoveItem(context.Context, string, string) error {
	return m.err
}

func (m *cartRepoMock) CompareAndSetStatus(context.Context, string, domain.CartStatus, domain.CartStatus) error {
	return m.err
}

type readerMock struct {
	snapshot map[string]catalog.Entry
	err      error
}

func (r *readerMock) Snapshot(context.Context, []string) (map[string]catalog.Entry, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.snapshot, nil
}

type purchaserMock struct {
	ticket *domain.Ticket
	err    error
}

func (p *purchaserMock) Purchase(context.Context, string) (*domain.Ticket, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.ticket, nil
}

func newCartRouter(h *CartHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/carts/{cid}", h.GetCart)
	r.Post("/api/carts", h.CreateCart)
	r.Post("/api/carts/{cid}/purchase", h.Purchase)
	r.Put("/api/carts/{cid}/items/{pid}", h.UpdateQuantity)
	r.Delete("/api/carts/{cid}/items/{pid}", h.RemoveItem)
	return r
}

func TestPurchase_ReturnsTicket(t *testing.T) {
	amount, _ := decimal.NewFromString("45.00")
	handler := NewCartHandler(&cartRepoMock{}, &readerMock{}, &purchaserMock{
		ticket: &domain.Ticket{Code: "TKT-OK", Purchaser: "b@e.c", Amount: amount},
	}, nil, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/api/carts/c1/purchase", nil)
	rec := httptest.NewRecorder()
	newCartRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp TicketResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "TKT-OK", resp.Code)
	assert.Equal(t, "45.00", resp.Amount)
}

func TestPurchase_MapsCartNotFoundTo404(t *testing.T) {
	handler := NewCartHandler(&cartRepoMock{}, &readerMock{}, &purchaserMock{err: checkout.ErrCartNotFound}, nil, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/api/carts/none/purchase", nil)
	rec := httptest.NewRecorder()
	newCartRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPurchase_MapsCartNotActiveTo409(t *testing.T) {
	handler := NewCartHandler(&cartRepoMock{}, &readerMock{}, &purchaserMock{err: checkout.ErrCartNotActive}, nil, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/api/carts/c1/purchase", nil)
	rec := httptest.NewRecorder()
	newCartRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cart_not_active", resp.Code)
}

func TestPurchase_MapsCatalogUnavailableTo503(t *testing.T) {
	handler := NewCartHandler(&cartRepoMock{}, &readerMock{}, &purchaserMock{err: checkout.ErrCatalogUnavailable}, nil, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/api/carts/c1/purchase", nil)
	rec := httptest.NewRecorder()
	newCartRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPurchase_MapsPricingRejectionTo422WithDetails(t *testing.T) {
	rejection := &checkout.PricingRejectedError{
		Rejections: []checkout.LineRejection{
			{ProductID: "p3", Quantity: 3, Reason: pricing.ReasonInsufficientStock},
		},
	}
	handler := NewCartHandler(&cartRepoMock{}, &readerMock{}, &purchaserMock{err: rejection}, nil, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/api/carts/c2/purchase", nil)
	rec := httptest.NewRecorder()
	newCartRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp struct {
		Code    string                   `json:"code"`
		Details []checkout.LineRejection `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pricing_rejected", resp.Code)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "p3", resp.Details[0].ProductID)
	assert.Equal(t, pricing.ReasonInsufficientStock, resp.Details[0].Reason)
}

func TestGetCart_ReturnsPricedView(t *testing.T) {
	unit, _ := decimal.NewFromString("10.00")
	cart := &domain.Cart{
		ID:     "c1",
		UserID: "u1",
		Status: domain.CartStatusActive,
		Items:  []domain.CartItem{{ProductID: "p1", Quantity: 2}},
	}
	reader := &readerMock{snapshot: map[string]catalog.Entry{
		"p1": {UnitPrice: unit, Stock: 5},
	}}
	handler := NewCartHandler(&cartRepoMock{cart: cart}, reader, &purchaserMock{}, nil, 5*time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/carts/c1", nil)
	rec := httptest.NewRecorder()
	newCartRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CartResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "20.00", resp.Total)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "10.00", resp.Lines[0].UnitPrice)
	assert.Equal(t, "20.00", resp.Lines[0].LineAmount)
}

func TestGetCart_NotFound(t *testing.T) {
	handler := NewCartHandler(&cartRepoMock{err: repository.ErrCartNotFound}, &readerMock{}, &purchaserMock{}, nil, 5*time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/carts/none", nil)
	rec := httptest.NewRecorder()
	newCartRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCart_RejectsDuplicateProductLines(t *testing.T) {
	handler := NewCartHandler(&cartRepoMock{createdID: "c9"}, &readerMock{}, &purchaserMock{}, nil, 5*time.Second)

	body, _ := json.Marshal(CreateCartRequestDTO{
		UserID: "u1",
		Items: []CartItemDTO{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p1", Quantity: 2},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/carts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	newCartRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "duplicate_product", resp.Code)
}

func TestCreateCart_RejectsUnknownProduct(t *testing.T) {
	handler := NewCartHandler(&cartRepoMock{createdID: "c9"}, &readerMock{snapshot: map[string]catalog.Entry{}}, &purchaserMock{}, nil, 5*time.Second)

	body, _ := json.Marshal(CreateCartRequestDTO{
		UserID: "u1",
		Items:  []CartItemDTO{{ProductID: "ghost", Quantity: 1}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/carts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	newCartRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unknown_product", resp.Code)
}

func TestRemoveItem_LastItemRejected(t *testing.T) {
	handler := NewCartHandler(&cartRepoMock{err: repository.ErrCartEmpty}, &readerMock{}, &purchaserMock{}, nil, 5*time.Second)

	req := httptest.NewRequest(http.MethodDelete, "/api/carts/c1/items/p1", nil)
	rec := httptest.NewRecorder()
	newCartRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "empty_cart", resp.Code)
}

func TestRemoveItem_ItemMissing(t *testing.T) {
	handler := NewCartHandler(&cartRepoMock{err: repository.ErrItemNotFound}, &readerMock{}, &purchaserMock{}, nil, 5*time.Second)

	req := httptest.NewRequest(http.MethodDelete, "/api/carts/c1/items/ghost", nil)
	rec := httptest.NewRecorder()
	newCartRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "item_not_found", resp.Code)
}

func TestUpdateQuantity_PurchasedCartConflict(t *testing.T) {
	handler := NewCartHandler(&cartRepoMock{err: repository.ErrStatusConflict}, &readerMock{}, &purchaserMock{}, nil, 5*time.Second)

	body, _ := json.Marshal(UpdateQuantityRequestDTO{Quantity: 3})
	req := httptest.NewRequest(http.MethodPut, "/api/carts/c1/items/p1", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	newCartRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cart_not_active", resp.Code)
}

func TestCreateCart_Succeeds(t *testing.T) {
	unit, _ := decimal.NewFromString("3.00")
	reader := &readerMock{snapshot: map[string]catalog.Entry{
		"p1": {UnitPrice: unit, Stock: 9},
	}}
	handler := NewCartHandler(&cartRepoMock{createdID: "c9"}, reader, &purchaserMock{}, nil, 5*time.Second)

	body, _ := json.Marshal(CreateCartRequestDTO{
		UserID: "u1",
		Items:  []CartItemDTO{{ProductID: "p1", Quantity: 2}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/carts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	newCartRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "c9", resp["id"])
}
