package veo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Static errors for poll operations.
var (
	// ErrOperationNameRequired is returned when the operation name is empty.
	ErrOperationNameRequired = errors.New("veo: operation name is required")
	// ErrOperationFetch is returned when the poll endpoint answers non-2xx.
	ErrOperationFetch = errors.New("veo: operation fetch failed")
)

// Client defines the interface for polling Veo operations.
type Client interface {
	// FetchOperation issues one authenticated poll and returns the raw
	// operation snapshot. One call is one snapshot; the caller re-invokes
	// on its own interval until a terminal state appears.
	FetchOperation(ctx context.Context, addr OperationAddress, operationName, accessToken string) (Operation, error)
}

// HTTPClient is the HTTP implementation of Client. A single upstream failure
// surfaces immediately as an error; retry responsibility stays with the
// caller re-running the whole pipeline.
type HTTPClient struct {
	httpClient *http.Client
	endpoint   func(addr OperationAddress) string
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithPollHTTPClient sets a custom HTTP client.
func WithPollHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithEndpointFunc overrides endpoint templating, used by tests to point the
// client at a local server.
func WithEndpointFunc(f func(addr OperationAddress) string) ClientOption {
	return func(hc *HTTPClient) {
		hc.endpoint = f
	}
}

// NewHTTPClient creates a poll client against the regional Vertex AI API.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		endpoint:   defaultEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// defaultEndpoint templates the fetchPredictOperation RPC URL from the
// operation's routing coordinates.
func defaultEndpoint(addr OperationAddress) string {
	return fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:fetchPredictOperation",
		addr.Location, addr.Project, addr.Location, addr.Model,
	)
}

// FetchOperation implements Client.
func (c *HTTPClient) FetchOperation(ctx context.Context, addr OperationAddress, operationName, accessToken string) (Operation, error) {
	if operationName == "" {
		return Operation{}, ErrOperationNameRequired
	}

	// The upstream server is stateless across polls, so the body repeats the
	// full operation name verbatim.
	reqBody, err := json.Marshal(map[string]string{"operationName": operationName})
	if err != nil {
		return Operation{}, fmt.Errorf("veo: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(addr), bytes.NewReader(reqBody))
	if err != nil {
		return Operation{}, fmt.Errorf("veo: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Operation{}, fmt.Errorf("%w: %v", ErrOperationFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Operation{}, fmt.Errorf("%w: read response: %v", ErrOperationFetch, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Operation{}, fmt.Errorf("%w with status %d: %s", ErrOperationFetch, resp.StatusCode, string(respBody))
	}

	var op Operation
	if err := json.Unmarshal(respBody, &op); err != nil {
		return Operation{}, fmt.Errorf("veo: unmarshal operation: %w", err)
	}

	return op, nil
}
