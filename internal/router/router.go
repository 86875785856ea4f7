package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/go-city-crud/internal/api/city"
)

// Config contains dependencies needed for the router setup
type Config struct {
	CityHandler *city.Handler
	// Middlewares run on every route mounted by SetupRouter, after the
	// server-wide stack applied in main.go.
	Middlewares []func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()
	r.Use(cfg.Middlewares...)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	// The same resource is served at both base paths the browser client
	// knows about.
	r.Route("/cities", CityRoutes(cfg.CityHandler))
	r.Route("/api/cities", CityRoutes(cfg.CityHandler))

	return r
}

// CityRoutes registers the five city endpoints relative to a base path.
func CityRoutes(h *city.Handler) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/", h.GetAllCities)
		r.Post("/", h.CreateCity)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetCity)
			r.Put("/", h.UpdateCity)
			r.Delete("/", h.DeleteCity)
		})
	}
}
