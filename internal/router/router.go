package router

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/session"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	productHandler *handler.ProductHandler,
	cartHandler *handler.CartHandler,
	catalogHandler *handler.CatalogHandler,
	binder *session.Binder,
	auth config.AuthConfig,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware order: Recovery -> RequestID -> Logging -> CORS -> Identity
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	r.Use(middleware.Identity(auth.JWTSecret, logger))

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", productHandler.GetAll)
		r.Get("/{id}", productHandler.GetByID)
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(binder.Middleware(handler.ErrorWriter(logger)))

		r.Get("/", cartHandler.Get)
		r.Post("/", cartHandler.Add)
		r.Delete("/", cartHandler.Clear)
		r.Patch("/{lineId}", cartHandler.UpdateQuantity)
		r.Delete("/{lineId}", cartHandler.Remove)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(auth.APIKey, logger))

		r.Post("/catalog/import", catalogHandler.Import)
	})

	return r
}
