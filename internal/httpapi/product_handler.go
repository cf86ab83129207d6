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
	"github.com/shopspring/decimal"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/repository"
)

// EventRecorder persists post-commit notification events for the outbox
// poller; satisfied by *repository.TicketRepository.
type EventRecorder interface {
	InsertEvent(ctx context.Context, eventType string, payload any) error
}

// CatalogInvalidator drops stale cached catalog entries after a mutation.
type CatalogInvalidator interface {
	Invalidate(productID string)
}

type ProductHandler struct {
	products    repository.ProductRepository
	users       repository.UserRepository
	events      EventRecorder
	invalidator CatalogInvalidator
	timeout     time.Duration
}

func NewProductHandler(products repository.ProductRepository, users repository.UserRepository, events EventRecorder, invalidator CatalogInvalidator, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		products:    products,
		users:       users,
		events:      events,
		invalidator: invalidator,
		timeout:     timeout,
	}
}

type ProductRequestDTO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Code        string `json:"code"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	Category    string `json:"category"`
	Thumbnail   string `json:"thumbnail"`
	OwnerID     string `json:"owner_id"`
}

type ProductResponseDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Code        string `json:"code"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	Category    string `json:"category"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	OwnerID     string `json:"owner_id,omitempty"`
}

func toProductDTO(p *domain.Product) ProductResponseDTO {
	return ProductResponseDTO{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Code:        p.Code,
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
		Category:    p.Category,
		Thumbnail:   p.Thumbnail,
		OwnerID:     p.OwnerID,
	}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, limit, sort, ok := paginationParams(w, r)
	if !ok {
		return
	}

	result, err := h.products.ListProducts(ctx, page, limit, sort)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list products")
		return
	}

	dtos := make([]ProductResponseDTO, 0, len(result.Products))
	for _, p := range result.Products {
		dtos = append(dtos, toProductDTO(p))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"products":    dtos,
		"page":        result.Page,
		"total_pages": result.TotalPages,
		"total":       result.Total,
	})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "pid")
	product, err := h.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "product_not_found", "the product with id "+productID+" does not exist")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load product")
		return
	}
	respondJSON(w, http.StatusOK, toProductDTO(product))
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, errCode := decodeProduct(r)
	if errCode != "" {
		respondError(w, http.StatusBadRequest, errCode, "product failed validation")
		return
	}

	id, err := h.products.CreateProduct(ctx, product)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create product")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "pid")
	product, errCode := decodeProduct(r)
	if errCode != "" {
		respondError(w, http.StatusBadRequest, errCode, "product failed validation")
		return
	}
	product.ID = productID

	if err := h.products.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "product_not_found", "the product with id "+productID+" does not exist")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update product")
		return
	}

	h.invalidator.Invalidate(productID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// Delete removes the product and, when the owner is a premium user, records a
// notification event so the owner gets informed asynchronously.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "pid")
	product, err := h.products.DeleteProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "product_not_found", "the product with id "+productID+" does not exist")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete product")
		return
	}

	h.invalidator.Invalidate(productID)
	h.notifyPremiumOwner(ctx, product)

	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *ProductHandler) notifyPremiumOwner(ctx context.Context, product *domain.Product) {
	if product.OwnerID == "" {
		return
	}
	owner, err := h.users.GetUser(ctx, product.OwnerID)
	if err != nil {
		log.Printf("failed to look up owner of deleted product %s: %v", product.ID, err)
		return
	}
	if owner.Role != domain.RolePremium {
		return
	}

	payload := map[string]string{
		"product_id":    product.ID,
		"product_title": product.Title,
		"owner_email":   owner.Email,
	}
	if err := h.events.InsertEvent(ctx, repository.EventPremiumProductErased, payload); err != nil {
		log.Printf("failed to record deletion event for product %s: %v", product.ID, err)
	}
}

func decodeProduct(r *http.Request) (*domain.Product, string) {
	var req ProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "invalid_request"
	}
	if req.Title == "" || req.Code == "" {
		return nil, "missing_fields"
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return nil, "invalid_price"
	}
	if req.Stock < 0 {
		return nil, "invalid_stock"
	}

	return &domain.Product{
		Title:       req.Title,
		Description: req.Description,
		Code:        req.Code,
		Price:       price,
		Stock:       req.Stock,
		Category:    req.Category,
		Thumbnail:   req.Thumbnail,
		OwnerID:     req.OwnerID,
	}, ""
}

// paginationParams parses ?page=&limit=&sort= with the original defaults.
func paginationParams(w http.ResponseWriter, r *http.Request) (page, limit int, sort string, ok bool) {
	page, limit = 1, 10
	sort = r.URL.Query().Get("sort")

	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
			return 0, 0, "", false
		}
		page = n
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return 0, 0, "", false
		}
		limit = n
	}
	if sort != "" && sort != "asc" && sort != "desc" {
		respondError(w, http.StatusBadRequest, "invalid_sort", "sort must be asc or desc")
		return 0, 0, "", false
	}
	return page, limit, sort, true
}
