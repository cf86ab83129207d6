package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/metrics"
)

type Handlers struct {
	Carts    *CartHandler
	Products *ProductHandler
	Users    *UserHandler
	Tickets  *TicketHandler
}

func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/carts", func(r chi.Router) {
			r.Get("/", h.Carts.ListCarts)
			r.Post("/", h.Carts.CreateCart)
			r.Get("/{cid}", h.Carts.GetCart)
			r.Put("/{cid}", h.Carts.ReplaceItems)
			r.Post("/{cid}/items", h.Carts.AddItem)
			r.Put("/{cid}/items/{pid}", h.Carts.UpdateQuantity)
			r.Delete("/{cid}/items/{pid}", h.Carts.RemoveItem)
			r.Post("/{cid}/purchase", h.Carts.Purchase)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.List)
			r.Post("/", h.Products.Create)
			r.Get("/{pid}", h.Products.Get)
			r.Put("/{pid}", h.Products.Update)
			r.Delete("/{pid}", h.Products.Delete)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.Users.List)
			r.Post("/", h.Users.Create)
			r.Delete("/", h.Users.DeleteInactive)
			r.Get("/paginated", h.Users.ListPaginated)
			r.Get("/mock/{qty}", h.Users.Mock)
			r.Post("/premium/{uid}", h.Users.TogglePremium)
			r.Get("/{uid}", h.Users.Get)
			r.Post("/{uid}/documents", h.Users.AppendDocuments)
			r.Put("/{uid}", h.Users.Update)
			r.Delete("/{uid}", h.Users.Delete)
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", h.Tickets.ListByPurchaser)
			r.Get("/{code}", h.Tickets.Get)
		})
	})

	return r
}
