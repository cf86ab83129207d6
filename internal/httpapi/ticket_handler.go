package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/repository"
)

// TicketReader reads committed purchase records; satisfied by
// *repository.TicketRepository.
type TicketReader interface {
	GetTicket(ctx context.Context, code string) (*domain.Ticket, error)
	ListTicketsByPurchaser(ctx context.Context, email string) ([]*domain.Ticket, error)
}

type TicketHandler struct {
	tickets TicketReader
	timeout time.Duration
}

func NewTicketHandler(tickets TicketReader, timeout time.Duration) *TicketHandler {
	return &TicketHandler{tickets: tickets, timeout: timeout}
}

func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	code := chi.URLParam(r, "code")
	tkt, err := h.tickets.GetTicket(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			respondError(w, http.StatusNotFound, "ticket_not_found", "no ticket with code "+code)
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load ticket")
		return
	}

	respondJSON(w, http.StatusOK, TicketResponseDTO{
		Code:        tkt.Code,
		PurchasedAt: tkt.PurchasedAt,
		Purchaser:   tkt.Purchaser,
		Amount:      tkt.Amount.StringFixed(2),
		Lines:       tkt.Lines,
	})
}

func (h *TicketHandler) ListByPurchaser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	email := r.URL.Query().Get("purchaser")
	if email == "" {
		respondError(w, http.StatusBadRequest, "missing_purchaser", "purchaser query parameter is required")
		return
	}

	tickets, err := h.tickets.ListTicketsByPurchaser(ctx, email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list tickets")
		return
	}

	dtos := make([]TicketResponseDTO, 0, len(tickets))
	for _, tkt := range tickets {
		dtos = append(dtos, TicketResponseDTO{
			Code:        tkt.Code,
			PurchasedAt: tkt.PurchasedAt,
			Purchaser:   tkt.Purchaser,
			Amount:      tkt.Amount.StringFixed(2),
			Lines:       tkt.Lines,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"tickets": dtos})
}
