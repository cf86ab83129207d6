package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/catalog"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/checkout"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/metrics"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/pricing"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/repository"
)

// Purchaser runs the checkout workflow; satisfied by *checkout.Service.
type Purchaser interface {
	Purchase(ctx context.Context, cartID string) (*domain.Ticket, error)
}

type CartHandler struct {
	carts     repository.CartRepository
	catalog   catalog.Reader
	purchaser Purchaser
	metrics   *metrics.CheckoutMetrics
	timeout   time.Duration
}

func NewCartHandler(carts repository.CartRepository, reader catalog.Reader, purchaser Purchaser, m *metrics.CheckoutMetrics, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:     carts,
		catalog:   reader,
		purchaser: purchaser,
		metrics:   m,
		timeout:   timeout,
	}
}

type CartItemDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CreateCartRequestDTO struct {
	UserID string        `json:"user_id"`
	Items  []CartItemDTO `json:"items"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartLineDTO struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price,omitempty"`
	LineAmount string `json:"line_amount,omitempty"`
	Rejected   string `json:"rejected,omitempty"`
}

type CartResponseDTO struct {
	ID     string        `json:"id"`
	UserID string        `json:"user_id"`
	Status string        `json:"status"`
	Lines  []CartLineDTO `json:"lines"`
	Total  string        `json:"total"`
}

type TicketResponseDTO struct {
	Code        string                `json:"code"`
	PurchasedAt time.Time             `json:"purchased_at"`
	Purchaser   string                `json:"purchaser"`
	Amount      string                `json:"amount"`
	Lines       []domain.PurchaseLine `json:"lines"`
}

func (h *CartHandler) ListCarts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	carts, err := h.carts.ListCarts(ctx, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list carts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"carts": carts})
}

func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateCartRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}
	items, errCode := validateItems(req.Items)
	if errCode != "" {
		respondError(w, http.StatusBadRequest, errCode, "cart items failed validation")
		return
	}

	// Every referenced product must exist at creation time.
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	snapshot, err := h.catalog.Snapshot(ctx, ids)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "catalog_unavailable", "could not verify products, retry later")
		return
	}
	for _, id := range ids {
		if _, ok := snapshot[id]; !ok {
			respondError(w, http.StatusBadRequest, "unknown_product", "product "+id+" does not exist")
			return
		}
	}

	cartID, err := h.carts.CreateCart(ctx, &domain.Cart{UserID: req.UserID, Items: items})
	if err != nil {
		if errors.Is(err, repository.ErrCartEmpty) {
			respondError(w, http.StatusBadRequest, "empty_cart", "cart must have at least one item")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create cart")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": cartID})
}

// GetCart returns the cart with each line priced against the current catalog.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "cid")
	cart, err := h.carts.GetCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			respondError(w, http.StatusNotFound, "cart_not_found", "the cart with id "+cartID+" does not exist")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}

	snapshot, err := h.catalog.Snapshot(ctx, cart.ProductIDs())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "catalog_unavailable", "could not price cart, retry later")
		return
	}

	priced := pricing.Price(cart.Items, snapshot)
	dto := CartResponseDTO{
		ID:     cart.ID,
		UserID: cart.UserID,
		Status: cart.Status.String(),
		Lines:  make([]CartLineDTO, 0, len(priced.Lines)),
		Total:  priced.Total.StringFixed(2),
	}
	for _, line := range priced.Lines {
		lineDTO := CartLineDTO{ProductID: line.ProductID, Quantity: line.Quantity}
		if line.Resolved {
			lineDTO.UnitPrice = line.UnitPrice.StringFixed(2)
			lineDTO.LineAmount = line.LineAmount.StringFixed(2)
		} else {
			lineDTO.Rejected = string(line.Reason)
		}
		dto.Lines = append(dto.Lines, lineDTO)
	}

	respondJSON(w, http.StatusOK, dto)
}

func (h *CartHandler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "cid")
	var req []CartItemDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	items, errCode := validateItems(req)
	if errCode != "" {
		respondError(w, http.StatusBadRequest, errCode, "cart items failed validation")
		return
	}

	if err := h.carts.ReplaceItems(ctx, cartID, items); err != nil {
		h.respondCartMutationError(w, cartID, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "cid")
	var req CartItemDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "missing_product_id", "product_id is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	item := domain.CartItem{ProductID: req.ProductID, Quantity: req.Quantity}
	if err := h.carts.AddItem(ctx, cartID, item); err != nil {
		h.respondCartMutationError(w, cartID, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "success"})
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "cid")
	productID := chi.URLParam(r, "pid")
	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	if err := h.carts.UpdateItemQuantity(ctx, cartID, productID, req.Quantity); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			respondError(w, http.StatusNotFound, "item_not_found", "item not found in cart")
			return
		}
		h.respondCartMutationError(w, cartID, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "cid")
	productID := chi.URLParam(r, "pid")

	if err := h.carts.RemoveItem(ctx, cartID, productID); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			respondError(w, http.StatusNotFound, "item_not_found", "item not found in cart")
			return
		}
		h.respondCartMutationError(w, cartID, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// Purchase runs the checkout workflow and maps its error taxonomy onto HTTP.
func (h *CartHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "cid")
	start := time.Now()
	tkt, err := h.purchaser.Purchase(ctx, cartID)
	h.observe(err, time.Since(start))

	if err != nil {
		log.Printf("purchase of cart %s failed (request %s): %v", cartID, getRequestID(ctx), err)
		var rejected *checkout.PricingRejectedError
		var issuance *checkout.TicketIssuanceError
		switch {
		case errors.Is(err, checkout.ErrCartNotFound):
			respondError(w, http.StatusNotFound, "cart_not_found", "the cart with id "+cartID+" does not exist")
		case errors.Is(err, checkout.ErrCartNotActive):
			respondError(w, http.StatusConflict, "cart_not_active", "cart already purchased or not purchasable")
		case errors.Is(err, checkout.ErrCatalogUnavailable):
			respondError(w, http.StatusServiceUnavailable, "catalog_unavailable", "catalog unavailable, retry later")
		case errors.Is(err, checkout.ErrPurchaserNotFound):
			respondError(w, http.StatusNotFound, "purchaser_not_found", "cart owner has no user record")
		case errors.As(err, &rejected):
			respondErrorDetails(w, http.StatusUnprocessableEntity, "pricing_rejected", err.Error(), rejected.Rejections)
		case errors.As(err, &issuance):
			respondError(w, http.StatusInternalServerError, "ticket_issuance_failed", "purchase could not be completed")
		default:
			respondError(w, http.StatusInternalServerError, "internal_error", "purchase failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, TicketResponseDTO{
		Code:        tkt.Code,
		PurchasedAt: tkt.PurchasedAt,
		Purchaser:   tkt.Purchaser,
		Amount:      tkt.Amount.StringFixed(2),
		Lines:       tkt.Lines,
	})
}

func (h *CartHandler) observe(err error, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	h.metrics.Purchases.WithLabelValues(outcome).Inc()
	h.metrics.LatencyMS.WithLabelValues(outcome).Observe(float64(elapsed.Milliseconds()))
}

func (h *CartHandler) respondCartMutationError(w http.ResponseWriter, cartID string, err error) {
	switch {
	case errors.Is(err, repository.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "cart_not_found", "the cart with id "+cartID+" does not exist")
	case errors.Is(err, repository.ErrStatusConflict):
		respondError(w, http.StatusConflict, "cart_not_active", "purchased carts are immutable")
	case errors.Is(err, repository.ErrCartEmpty):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart must have at least one item")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "cart update failed")
	}
}

// validateItems checks quantities and product-ref uniqueness and converts to
// domain items.
func validateItems(dtos []CartItemDTO) ([]domain.CartItem, string) {
	if len(dtos) == 0 {
		return nil, "empty_cart"
	}

	seen := make(map[string]struct{}, len(dtos))
	items := make([]domain.CartItem, 0, len(dtos))
	for _, dto := range dtos {
		if dto.ProductID == "" {
			return nil, "missing_product_id"
		}
		if dto.Quantity <= 0 || dto.Quantity > 99 {
			return nil, "invalid_quantity"
		}
		if _, dup := seen[dto.ProductID]; dup {
			return nil, "duplicate_product"
		}
		seen[dto.ProductID] = struct{}{}
		items = append(items, domain.CartItem{ProductID: dto.ProductID, Quantity: dto.Quantity})
	}
	return items, ""
}
