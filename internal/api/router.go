package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/mediahub/mediahub/internal/api/handler"
	"github.com/mediahub/mediahub/internal/api/middleware"
	"github.com/mediahub/mediahub/internal/cache"
	"github.com/mediahub/mediahub/internal/store"
)

// Dependencies holds everything the router needs to wire handlers.
type Dependencies struct {
	Store           store.Store
	Cache           cache.Cache
	Analysis        handler.AnalysisService
	Backend         handler.HealthChecker
	RateLimitPerMin int
}

// NewRouter builds the HTTP routing tree.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)

	auth := middleware.NewAuth(deps.Store)
	rateLimit := middleware.NewRateLimit(deps.Cache, deps.RateLimitPerMin)

	analysisHandler := handler.NewAnalysisHandler(deps.Analysis)
	healthHandler := handler.NewHealthHandler(deps.Store, deps.Cache, deps.Backend)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Check)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(rateLimit.Limit)

			r.Post("/analysis", analysisHandler.Submit)
			r.Get("/analysis/stats", analysisHandler.Stats)
			r.Get("/analysis/{jobID}", analysisHandler.Get)
			r.Delete("/analysis/{jobID}", analysisHandler.Delete)
			r.Get("/media/{mediaID}/analysis", analysisHandler.ListByMedia)
		})
	})

	return r
}
