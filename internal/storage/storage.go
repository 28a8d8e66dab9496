// Package storage persists video artifacts to object storage. It defines the
// Uploader interface (port) and a Persister that degrades to an inline data
// URL whenever durable storage is absent or unavailable.
package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"
)

// videoContentType is the MIME type of every persisted artifact.
const videoContentType = "video/mp4"

// Uploader uploads raw artifact bytes and returns a public HTTPS URL. The
// access token is the bearer credential of the current invocation; backends
// with their own credential chain may ignore it.
type Uploader interface {
	Upload(ctx context.Context, object string, data []byte, accessToken string) (url string, err error)
}

// Persister stores an artifact durably when it can and inline when it cannot.
// Persist never fails: an upload error is logged and absorbed into the
// data-URL fallback, so storage trouble only affects response payload size,
// never the outcome.
type Persister struct {
	uploader  Uploader
	generator string
	logger    *slog.Logger
	now       func() time.Time
}

// PersisterOption configures a Persister.
type PersisterOption func(*Persister)

// WithClock overrides the time source used for object naming.
func WithClock(now func() time.Time) PersisterOption {
	return func(p *Persister) {
		p.now = now
	}
}

// NewPersister creates a Persister. A nil uploader means no storage is
// configured and every artifact is returned inline. The generator name is
// embedded in object names to keep uploads from different models apart.
func NewPersister(uploader Uploader, generator string, logger *slog.Logger, opts ...PersisterOption) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Persister{
		uploader:  uploader,
		generator: generator,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Persist uploads the artifact and returns its public URL, falling back to a
// self-contained data URL when no uploader is configured or the upload fails.
func (p *Persister) Persist(ctx context.Context, data []byte, accessToken string) string {
	if p.uploader == nil {
		return DataURL(data)
	}

	object := fmt.Sprintf("videos/%s-%d.mp4", p.generator, p.now().UnixMilli())

	url, err := p.uploader.Upload(ctx, object, data, accessToken)
	if err != nil {
		p.logger.Error("artifact upload failed, falling back to data URL",
			slog.String("object", object),
			slog.Int("size_bytes", len(data)),
			slog.String("error", err.Error()),
		)
		return DataURL(data)
	}

	p.logger.Info("artifact uploaded",
		slog.String("object", object),
		slog.Int("size_bytes", len(data)),
	)
	return url
}

// DataURL encodes the artifact as a self-contained data URL.
func DataURL(data []byte) string {
	return "data:" + videoContentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
