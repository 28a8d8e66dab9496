// Package bridge resolves the status of a Veo long-running operation into a
// client-ready outcome: still processing, a playable video URL, or a
// provider-reported failure.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adrianmolina/veo-bridge/internal/gcpauth"
	"github.com/adrianmolina/veo-bridge/internal/veo"
)

// ErrNoCredentials is returned when the service was built without a
// service-account key.
var ErrNoCredentials = errors.New("bridge: service account credentials are required")

// Status values reported to clients.
const (
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

// Resolution is the outcome of resolving one operation snapshot.
type Resolution struct {
	Status   string
	Progress int    // set when Status is StatusProcessing
	VideoURL string // set when Status is StatusDone
	Error    string // set when Status is StatusError
}

// Persister stores artifact bytes and returns a URL. It cannot fail; storage
// trouble degrades to an inline representation inside the implementation.
type Persister interface {
	Persist(ctx context.Context, data []byte, accessToken string) string
}

// Service runs the poll pipeline. Every call is independent: it performs a
// full credential exchange, one poll, one decode, and at most one upload.
// Nothing is cached or retried here; the client re-invokes on its own
// interval until it sees a terminal status.
type Service struct {
	key       *gcpauth.ServiceAccountKey
	tokens    gcpauth.TokenSource
	client    veo.Client
	persister Persister
	logger    *slog.Logger
}

// NewService creates a Service from its collaborators.
func NewService(key *gcpauth.ServiceAccountKey, tokens gcpauth.TokenSource, client veo.Client, persister Persister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		key:       key,
		tokens:    tokens,
		client:    client,
		persister: persister,
		logger:    logger,
	}
}

// ResolveOperation polls one operation and normalizes the result. A
// provider-reported job failure is a Resolution, not an error: the status
// check itself succeeded. Errors are reserved for the bridge's own failures
// (bad operation name, credential exchange, poll transport).
func (s *Service) ResolveOperation(ctx context.Context, operationName string) (Resolution, error) {
	if s.key == nil {
		return Resolution{}, ErrNoCredentials
	}

	addr, err := veo.ParseOperationName(operationName)
	if err != nil {
		return Resolution{}, err
	}

	accessToken, err := s.tokens.Exchange(ctx, s.key)
	if err != nil {
		return Resolution{}, fmt.Errorf("exchange credentials: %w", err)
	}

	op, err := s.client.FetchOperation(ctx, addr, operationName, accessToken)
	if err != nil {
		return Resolution{}, fmt.Errorf("fetch operation: %w", err)
	}

	result, err := veo.Decode(op)
	if err != nil {
		return Resolution{}, fmt.Errorf("decode operation: %w", err)
	}

	switch result.State {
	case veo.StatePending:
		s.logger.Info("operation still running",
			slog.String("operation", operationName),
			slog.Int("progress", result.Progress),
		)
		return Resolution{Status: StatusProcessing, Progress: result.Progress}, nil

	case veo.StateFailed:
		s.logger.Warn("operation failed upstream",
			slog.String("operation", operationName),
			slog.String("error", result.Message),
		)
		return Resolution{Status: StatusError, Error: result.Message}, nil

	default:
		videoURL := result.Artifact.URI
		if videoURL == "" {
			videoURL = s.persister.Persist(ctx, result.Artifact.Bytes, accessToken)
		}
		s.logger.Info("operation complete",
			slog.String("operation", operationName),
			slog.Int("artifact_bytes", len(result.Artifact.Bytes)),
		)
		return Resolution{Status: StatusDone, VideoURL: videoURL}, nil
	}
}
