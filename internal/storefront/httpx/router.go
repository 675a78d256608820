package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/foodie-storefront/internal/pkg/metrics"
	"github.com/jcmexdev/foodie-storefront/internal/storefront/httpx/middlewares"
)

// MaxBodyBytes caps every request body under /api.
const MaxBodyBytes = 64 << 10

func NewRouter(handler *Handler, m *metrics.ServerMetrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachTracingMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewares.Metrics(m))

	r.Get("/health", handler.Health)
	r.Handle("/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequestSize(MaxBodyBytes))

		r.Get("/restaurants", handler.ListRestaurants)
		r.Get("/restaurants/{id}", handler.GetRestaurant)
		r.Post("/chat", handler.Chat)

		r.Group(func(r chi.Router) {
			r.Use(middlewares.Session)

			r.Get("/cart", handler.GetCart)
			r.Delete("/cart", handler.ClearCart)
			r.Post("/cart/items", handler.AddCartItem)
			r.Put("/cart/items/{itemId}", handler.UpdateCartItem)
			r.Delete("/cart/items/{itemId}", handler.RemoveCartItem)

			r.Post("/checkout", handler.StartCheckout)
			r.Get("/checkout", handler.GetCheckout)
			r.Put("/checkout/address", handler.SetAddress)
			r.Put("/checkout/payment", handler.SetPayment)
			r.Post("/checkout/advance", handler.AdvanceCheckout)
			r.Post("/checkout/back", handler.BackCheckout)
		})
	})
	return r
}
