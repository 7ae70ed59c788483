package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/escrow-auction/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса аукциона.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/auction", func(r chi.Router) {
		r.Get("/", h.GetAuction)
		r.Get("/winner", h.GetWinner)
		r.Get("/bidders", h.GetBidders)
		r.Get("/remaining", h.GetRemaining)
		r.Get("/refunds/{identity}", h.GetRefundHistory)
		r.Get("/events", h.GetEvents)

		if h.stream != nil {
			r.Get("/stream", h.stream.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/bids", h.PlaceBid)
			r.Post("/refund", h.RequestRefund)
			r.Post("/end", h.EndAuction)
			r.Post("/settle", h.ProcessPayments)
		})
	})

	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
