package server

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/adrianmolina/veo-bridge/internal/bridge"
	"github.com/adrianmolina/veo-bridge/internal/gcpauth"
	"github.com/adrianmolina/veo-bridge/internal/storage"
	"github.com/adrianmolina/veo-bridge/internal/veo"
)

const testOperationName = "projects/demo-project/locations/us-central1/publishers/google/models/veo-3.0-generate-001/operations/12345"

// mockResolver implements OperationResolver for testing.
type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveOperation(ctx context.Context, operationName string) (bridge.Resolution, error) {
	args := m.Called(ctx, operationName)
	return args.Get(0).(bridge.Resolution), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestHandlers() (*Handlers, *mockResolver) {
	resolver := &mockResolver{}
	return NewHandlers(resolver, testLogger()), resolver
}

func pollRequest(body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/operations/poll", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandlers()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestPollOperation_EmptyBody(t *testing.T) {
	h, _ := newTestHandlers()

	rec := httptest.NewRecorder()
	h.PollOperation(rec, pollRequest(nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "Empty request body", resp.Error)
}

func TestPollOperation_InvalidJSON(t *testing.T) {
	h, _ := newTestHandlers()

	rec := httptest.NewRecorder()
	h.PollOperation(rec, pollRequest([]byte("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, "Invalid JSON", resp.Error)
}

func TestPollOperation_MissingOperationName(t *testing.T) {
	h, _ := newTestHandlers()

	rec := httptest.NewRecorder()
	h.PollOperation(rec, pollRequest([]byte(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeErrorResponse(t, rec)
	assert.Contains(t, resp.Error, "operationName")
}

func TestPollOperation_InvalidOperationName(t *testing.T) {
	h, resolver := newTestHandlers()

	resolver.On("ResolveOperation", mock.Anything, "operations/123").
		Return(bridge.Resolution{}, veo.ErrInvalidOperationName)

	rec := httptest.NewRecorder()
	h.PollOperation(rec, pollRequest([]byte(`{"operationName":"operations/123"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPollOperation_ResolverFailure(t *testing.T) {
	h, resolver := newTestHandlers()

	resolver.On("ResolveOperation", mock.Anything, testOperationName).
		Return(bridge.Resolution{}, errors.New("exchange credentials: invalid_grant"))

	rec := httptest.NewRecorder()
	h.PollOperation(rec, pollRequest([]byte(`{"operationName":"`+testOperationName+`"}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeErrorResponse(t, rec)
	assert.Contains(t, resp.Error, "invalid_grant")
}

func TestPollOperation_Processing(t *testing.T) {
	h, resolver := newTestHandlers()

	resolver.On("ResolveOperation", mock.Anything, testOperationName).
		Return(bridge.Resolution{Status: bridge.StatusProcessing, Progress: 50}, nil)

	rec := httptest.NewRecorder()
	h.PollOperation(rec, pollRequest([]byte(`{"operationName":"`+testOperationName+`"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ProcessingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "processing", resp.Status)
	assert.Equal(t, 50, resp.Progress)
}

func TestPollOperation_Done(t *testing.T) {
	h, resolver := newTestHandlers()

	resolver.On("ResolveOperation", mock.Anything, testOperationName).
		Return(bridge.Resolution{
			Status:   bridge.StatusDone,
			VideoURL: "https://storage.googleapis.com/bucket/videos/veo-1.mp4",
		}, nil)

	rec := httptest.NewRecorder()
	h.PollOperation(rec, pollRequest([]byte(`{"operationName":"`+testOperationName+`"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp DoneResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "done", resp.Status)
	assert.Equal(t, "https://storage.googleapis.com/bucket/videos/veo-1.mp4", resp.VideoURL)
}

func TestPollOperation_UpstreamJobFailureIs200(t *testing.T) {
	h, resolver := newTestHandlers()

	resolver.On("ResolveOperation", mock.Anything, testOperationName).
		Return(bridge.Resolution{Status: bridge.StatusError, Error: "prompt was blocked"}, nil)

	rec := httptest.NewRecorder()
	h.PollOperation(rec, pollRequest([]byte(`{"operationName":"`+testOperationName+`"}`)))

	// The status check succeeded; the job failure lives in the payload.
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "prompt was blocked", resp.Error)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h, _ := newTestHandlers()
	router := NewRouter(h, testLogger())

	req := httptest.NewRequest(http.MethodOptions, "/v1/operations/poll", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "OPTIONS")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "content-type")
}

// newPipelineServer wires real collaborators against local fake endpoints so
// the full request path can be exercised end to end.
func newPipelineServer(t *testing.T, operation veo.Operation, uploader storage.Uploader) http.Handler {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	key := &gcpauth.ServiceAccountKey{
		ClientEmail: "bridge@demo-project.iam.gserviceaccount.com",
		PrivateKey:  string(keyPEM),
	}

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
	}))
	t.Cleanup(tokenSrv.Close)

	pollSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(operation)
	}))
	t.Cleanup(pollSrv.Close)

	exchanger := gcpauth.NewExchanger(gcpauth.WithTokenURL(tokenSrv.URL))
	pollClient := veo.NewHTTPClient(veo.WithEndpointFunc(func(veo.OperationAddress) string { return pollSrv.URL }))
	persister := storage.NewPersister(uploader, "veo", testLogger())
	svc := bridge.NewService(key, exchanger, pollClient, persister, testLogger())

	return NewRouter(NewHandlers(svc, testLogger()), testLogger())
}

func TestPipeline_DoneWithBytesAndNoBucket(t *testing.T) {
	videoBytes := []byte("fake-mp4-content")
	encoded := base64.StdEncoding.EncodeToString(videoBytes)

	router := newPipelineServer(t, veo.Operation{
		Done: true,
		Response: &veo.OperationResponse{
			Videos: []veo.Video{{BytesBase64Encoded: encoded}},
		},
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, pollRequest([]byte(`{"operationName":"`+testOperationName+`"}`)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DoneResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "done", resp.Status)
	assert.Equal(t, "data:video/mp4;base64,"+encoded, resp.VideoURL)
}

func TestPipeline_UploadFailureFallsBackToDataURL(t *testing.T) {
	videoBytes := []byte("fake-mp4-content")
	encoded := base64.StdEncoding.EncodeToString(videoBytes)

	uploadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer uploadSrv.Close()

	uploader, err := storage.NewGCSUploader("my-bucket",
		storage.WithGCSBaseURLs(uploadSrv.URL, "https://storage.googleapis.com"))
	require.NoError(t, err)

	router := newPipelineServer(t, veo.Operation{
		Done: true,
		Response: &veo.OperationResponse{
			Videos: []veo.Video{{BytesBase64Encoded: encoded}},
		},
	}, uploader)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, pollRequest([]byte(`{"operationName":"`+testOperationName+`"}`)))

	// The upload failure never surfaces; the response succeeds inline.
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DoneResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "done", resp.Status)
	assert.Equal(t, "data:video/mp4;base64,"+encoded, resp.VideoURL)
}
