package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/adrianmolina/veo-bridge/internal/bridge"
	"github.com/adrianmolina/veo-bridge/internal/veo"
)

// OperationResolver resolves one operation snapshot into a client outcome.
type OperationResolver interface {
	ResolveOperation(ctx context.Context, operationName string) (bridge.Resolution, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	resolver  OperationResolver
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(resolver OperationResolver, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		resolver:  resolver,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// PollOperation handles POST /v1/operations/poll requests. Every stage
// failure short-circuits to a structured error response; there is no
// silent-drop path.
func (h *Handlers) PollOperation(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("failed to read request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "Empty request body")
		return
	}

	var req PollRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "operationName is required")
		return
	}

	resolution, err := h.resolver.ResolveOperation(r.Context(), req.OperationName)
	if err != nil {
		// A bad operation name is the client's mistake; everything else
		// (credential exchange, poll transport, config) is ours.
		if errors.Is(err, veo.ErrInvalidOperationName) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to resolve operation",
			slog.String("operation", req.OperationName),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch resolution.Status {
	case bridge.StatusProcessing:
		writeJSON(w, http.StatusOK, ProcessingResponse{
			Status:   resolution.Status,
			Progress: resolution.Progress,
		})
	case bridge.StatusDone:
		writeJSON(w, http.StatusOK, DoneResponse{
			Status:   resolution.Status,
			VideoURL: resolution.VideoURL,
		})
	default:
		// The status check itself succeeded, so a provider-reported job
		// failure is a 200 with an error payload, not a transport failure.
		writeJSON(w, http.StatusOK, ErrorResponse{
			Status: bridge.StatusError,
			Error:  resolution.Error,
		})
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Status: bridge.StatusError,
		Error:  message,
	})
}
