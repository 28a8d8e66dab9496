package server

import (
	"log/slog"
	"net/http"
)

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Register routes with method-based patterns (Go 1.22+)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /v1/operations/poll", h.PollOperation)

	// CORS runs outermost so preflight never reaches the mux.
	chain := ChainMiddleware(
		CORSMiddleware(),
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	)

	return chain(mux)
}
