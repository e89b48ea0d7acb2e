package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/mediahub/mediahub/internal/api/response"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports the health of the external analysis backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler reports service and dependency health.
type HealthHandler struct {
	db      Pinger
	cache   Pinger
	backend HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db, cache Pinger, backend HealthChecker) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, backend: backend}
}

// Check handles GET /api/v1/health. Any unreachable dependency degrades the
// overall status and the endpoint returns 503.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	record := func(name string, err error) {
		if err != nil {
			checks[name] = "unreachable"
			healthy = false
			return
		}
		checks[name] = "ok"
	}

	record("database", h.db.Ping(ctx))
	record("cache", h.cache.Ping(ctx))
	record("ai_backend", h.backend.Health(ctx))

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	body := map[string]any{
		"status": status,
		"checks": checks,
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if code == http.StatusOK {
		response.JSON(w, body)
		return
	}
	response.Error(w, code, "SERVICE_UNAVAILABLE", "One or more dependencies are unreachable", body)
}
