package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/edugate-core/internal/auth"
)

// healthCheckTimeout bounds each component probe in /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (outside the pipeline)
		r.Get("/health", s.handleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.With(s.operation(auth.OpCSRFToken)).Get("/csrf", s.handleCSRFToken)
			r.With(s.operation(auth.OpLogin)).Post("/login", s.handleLogin)
			r.With(s.operation(auth.OpLogout)).Post("/logout", s.handleLogout)
			r.With(s.operation(auth.OpMe)).Get("/me", s.handleMe)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.With(s.operation(auth.OpListAccounts)).Get("/", s.handleListAccounts)
			r.With(s.operation(auth.OpSetAccountActive)).Patch("/{username}/active", s.handleSetAccountActive)
		})

		r.With(s.operation(auth.OpAuditLog)).Get("/audit", s.handleListAuditLogs)
		r.With(s.operation(auth.OpSystemMetrics)).Get("/metrics", s.handleMetrics)
	})

	return r
}

// handleHealth returns the server health status and, when configured,
// the health of each backing component.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	components := make(map[string]string, len(s.health))

	for name, hc := range s.health {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := hc.HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = "unhealthy"
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	body := map[string]any{
		"status":  status,
		"version": s.version,
	}
	if len(components) > 0 {
		body["components"] = components
	}
	writeJSON(w, http.StatusOK, body)
}
