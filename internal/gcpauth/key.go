// Package gcpauth exchanges a Google service-account key for a short-lived
// bearer access token using the OAuth 2.0 JWT-bearer grant.
package gcpauth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Static errors for service-account key handling.
var (
	// ErrKeyRequired is returned when no service-account key is provided.
	ErrKeyRequired = errors.New("gcpauth: service account key is required")
	// ErrInvalidKey is returned when the key is neither valid JSON nor
	// base64-encoded JSON.
	ErrInvalidKey = errors.New("gcpauth: invalid service account key")
)

// DefaultTokenURL is Google's OAuth 2.0 token endpoint.
const DefaultTokenURL = "https://oauth2.googleapis.com/token"

// ServiceAccountKey is the downloadable JSON key for a Google Cloud service
// account. Only the fields used by the token exchange are listed.
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri"`
}

// ParseServiceAccountKey decodes a service-account key supplied either as a
// raw JSON document or as a base64-encoded JSON document. The base64 form is
// common when the key is stored in a single environment variable.
func ParseServiceAccountKey(raw string) (*ServiceAccountKey, error) {
	if raw == "" {
		return nil, ErrKeyRequired
	}

	var key ServiceAccountKey
	if err := json.Unmarshal([]byte(raw), &key); err == nil {
		return &key, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: not JSON and not base64", ErrInvalidKey)
	}
	if err := json.Unmarshal(decoded, &key); err != nil {
		return nil, fmt.Errorf("%w: decoded payload is not JSON: %v", ErrInvalidKey, err)
	}

	return &key, nil
}
