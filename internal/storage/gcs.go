package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Static errors for GCS upload operations.
var (
	// ErrBucketRequired is returned when no bucket name is provided.
	ErrBucketRequired = errors.New("storage: bucket is required")
	// ErrUploadFailed is returned when the upload endpoint answers non-2xx.
	ErrUploadFailed = errors.New("storage: upload failed")
)

// GCSUploader uploads artifacts to a Cloud Storage bucket through the
// simple-upload endpoint, authenticated with the per-invocation bearer token
// rather than a service-level credential chain.
type GCSUploader struct {
	bucket     string
	uploadBase string
	publicBase string
	httpClient *http.Client
}

// GCSOption configures a GCSUploader.
type GCSOption func(*GCSUploader)

// WithGCSHTTPClient sets a custom HTTP client.
func WithGCSHTTPClient(c *http.Client) GCSOption {
	return func(g *GCSUploader) {
		g.httpClient = c
	}
}

// WithGCSBaseURLs overrides the upload and public endpoints, used by tests.
func WithGCSBaseURLs(uploadBase, publicBase string) GCSOption {
	return func(g *GCSUploader) {
		g.uploadBase = uploadBase
		g.publicBase = publicBase
	}
}

// NewGCSUploader creates an uploader for the given bucket.
func NewGCSUploader(bucket string, opts ...GCSOption) (*GCSUploader, error) {
	if bucket == "" {
		return nil, ErrBucketRequired
	}
	g := &GCSUploader{
		bucket:     bucket,
		uploadBase: "https://storage.googleapis.com/upload/storage/v1",
		publicBase: "https://storage.googleapis.com",
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Upload performs one single-shot media upload and returns the object's
// public HTTPS URL.
func (g *GCSUploader) Upload(ctx context.Context, object string, data []byte, accessToken string) (string, error) {
	uploadURL := fmt.Sprintf("%s/b/%s/o?uploadType=media&name=%s",
		g.uploadBase, g.bucket, url.QueryEscape(object))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("storage: create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", videoContentType)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w with status %d: %s", ErrUploadFailed, resp.StatusCode, string(body))
	}

	return fmt.Sprintf("%s/%s/%s", g.publicBase, g.bucket, object), nil
}
