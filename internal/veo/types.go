// Package veo provides an HTTP client for polling Vertex AI Veo
// long-running video-generation operations and decoding their results.
package veo

// OperationAddress holds the routing coordinates extracted from an
// operation name, used to template the poll endpoint.
type OperationAddress struct {
	Project  string
	Location string
	Model    string
}

// Operation is the raw long-running-operation document returned by the
// fetchPredictOperation RPC.
type Operation struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Error    *OperationError    `json:"error,omitempty"`
	Metadata *OperationMetadata `json:"metadata,omitempty"`
	Response *OperationResponse `json:"response,omitempty"`
}

// OperationError is the provider-reported failure of the job itself.
type OperationError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

// OperationMetadata carries optional progress telemetry.
type OperationMetadata struct {
	ProgressPercentage *int `json:"progressPercentage,omitempty"`
}

// OperationResponse holds the completed artifact in one of several shapes
// the API has used over time.
type OperationResponse struct {
	Videos          []Video          `json:"videos,omitempty"`
	GeneratedVideos []GeneratedVideo `json:"generatedVideos,omitempty"`
}

// Video is the current response shape: inline base64 bytes or a GCS URI.
type Video struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
	GCSURI             string `json:"gcsUri,omitempty"`
	MimeType           string `json:"mimeType,omitempty"`
}

// GeneratedVideo is the legacy response shape nesting the URI one level down.
type GeneratedVideo struct {
	Video struct {
		URI string `json:"uri,omitempty"`
	} `json:"video"`
}

// State is the normalized lifecycle state of a polled operation.
type State string

// Normalized operation states.
const (
	StatePending State = "PENDING"
	StateDone    State = "DONE"
	StateFailed  State = "FAILED"
)

// Artifact is the delivered video: either raw bytes or an already-hosted URI.
// Exactly one of the fields is set.
type Artifact struct {
	Bytes []byte
	URI   string
}

// Result is the normalized outcome of decoding one operation snapshot.
type Result struct {
	State    State
	Progress int      // set when State is StatePending, 0-100
	Artifact Artifact // set when State is StateDone
	Message  string   // set when State is StateFailed
}
