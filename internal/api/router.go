package api

import (
	"log/slog"
	"net/http"

	"github.com/bcnelson/widget-authorizer/internal/api/handler"
	"github.com/bcnelson/widget-authorizer/internal/api/middleware"
	"github.com/bcnelson/widget-authorizer/internal/auth"
	"github.com/bcnelson/widget-authorizer/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new HTTP router with all routes configured.
// A nil verifier with an empty apiToken leaves the API unauthenticated. An empty
// traceName disables request spans.
func NewRouter(
	svc handler.DataProvider,
	verifier auth.TokenVerifier,
	apiToken string,
	m *metrics.Metrics,
	traceName string,
	log *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	if log != nil {
		r.Use(middleware.Logging(log))
	}
	if traceName != "" {
		r.Use(middleware.Tracing(traceName))
	}

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if s, ok := svc.(interface{ Started() bool }); ok && !s.Started() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"starting"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	// API routes (auth required, JSON Content-Type)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(middleware.Auth(verifier, apiToken))

		authorizeHandler := handler.NewAuthorizeHandler(svc)
		r.Post("/authorize", authorizeHandler.Authorize)

		widgetHandler := handler.NewWidgetHandler(svc)
		r.Get("/widgets", widgetHandler.List)
		r.Get("/widgets/{id}", widgetHandler.Get)
		r.Delete("/widgets/{id}", widgetHandler.Delete)
	})

	return r
}
