package veo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOperationName is returned when an operation name does not carry
// the expected number of path segments.
var ErrInvalidOperationName = errors.New("veo: invalid operation name")

// minOperationSegments is the segment count of a well-formed operation name:
// projects/{p}/locations/{l}/publishers/{pub}/models/{m}/operations/{id}.
const minOperationSegments = 8

// gsScheme is the Cloud Storage URI scheme rewritten to an HTTPS host.
const gsScheme = "gs://"

// gcsPublicHost is the public HTTPS host serving Cloud Storage objects.
const gcsPublicHost = "https://storage.googleapis.com/"

// ParseOperationName extracts routing coordinates from an operation name by
// position. The layout is owned by the upstream API, so beyond the segment
// count there is nothing worth validating here.
func ParseOperationName(name string) (OperationAddress, error) {
	parts := strings.Split(name, "/")
	if len(parts) < minOperationSegments {
		return OperationAddress{}, fmt.Errorf("%w: want at least %d segments, got %d",
			ErrInvalidOperationName, minOperationSegments, len(parts))
	}
	return OperationAddress{
		Project:  parts[1],
		Location: parts[3],
		Model:    parts[7],
	}, nil
}

// RewriteGSURI converts a gs:// URI into its public HTTPS equivalent.
// Non-gs URIs pass through unchanged.
func RewriteGSURI(uri string) string {
	if after, ok := strings.CutPrefix(uri, gsScheme); ok {
		return gcsPublicHost + after
	}
	return uri
}
