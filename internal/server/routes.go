package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// AdminToken, when set, must be sent in X-Admin-Token on every /api request.
	AdminToken string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()
	api := AdminTokenMiddleware(cfg.AdminToken)

	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("GET /api/jobs", api(http.HandlerFunc(h.ListJobs)))
	mux.Handle("POST /api/jobs", api(http.HandlerFunc(h.CreateJob)))
	mux.Handle("GET /api/jobs/{id}", api(http.HandlerFunc(h.GetJob)))
	mux.Handle("GET /api/jobs/{id}/file", api(http.HandlerFunc(h.DownloadFile)))
	mux.Handle("POST /api/jobs/{id}/cancel", api(http.HandlerFunc(h.CancelJob)))
	mux.Handle("POST /api/jobs/{id}/delete", api(http.HandlerFunc(h.DeleteJob)))

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
