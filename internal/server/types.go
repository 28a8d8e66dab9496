// Package server provides the HTTP server for the Veo bridge API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// PollRequest is the HTTP request body for polling an operation.
type PollRequest struct {
	// OperationName is the full resource name of the long-running operation.
	OperationName string `json:"operationName" validate:"required"`
}

// ProcessingResponse reports an operation that has not finished yet.
type ProcessingResponse struct {
	// Status is always "processing".
	Status string `json:"status"`
	// Progress is the percentage of completion (0-100).
	Progress int `json:"progress"`
}

// DoneResponse reports a finished operation and where to play the video.
type DoneResponse struct {
	// Status is always "done".
	Status string `json:"status"`
	// VideoURL is a public HTTPS URL or an inline data URL.
	VideoURL string `json:"videoUrl"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Status is always "error".
	Status string `json:"status"`
	// Error is the human-readable error message.
	Error string `json:"error"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
