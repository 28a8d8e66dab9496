package veo

import (
	"encoding/base64"
	"fmt"
)

// defaultProgress is reported when a pending operation carries no progress
// telemetry. An arbitrary midpoint, but better than claiming 0 forever.
const defaultProgress = 50

// noVideoMessage is the failure reported when a terminal operation carries
// no artifact in any known shape.
const noVideoMessage = "No video in response"

// artifactDecoder tries to extract an artifact from one historical response
// shape, reporting whether it matched.
type artifactDecoder func(r *OperationResponse) (Artifact, bool, error)

// artifactDecoders are tried in priority order: the current inline-bytes
// shape first, then the current URI shape, then the legacy nested-URI shape.
// Supporting a future shape means appending a decoder, not growing a
// conditional.
var artifactDecoders = []artifactDecoder{
	decodeInlineBytes,
	decodeGCSURI,
	decodeLegacyURI,
}

// Decode normalizes one operation snapshot into a Result.
func Decode(op Operation) (Result, error) {
	if !op.Done {
		progress := defaultProgress
		if op.Metadata != nil && op.Metadata.ProgressPercentage != nil {
			progress = *op.Metadata.ProgressPercentage
		}
		return Result{State: StatePending, Progress: progress}, nil
	}

	if op.Error != nil {
		return Result{State: StateFailed, Message: op.Error.Message}, nil
	}

	if op.Response != nil {
		for _, decode := range artifactDecoders {
			artifact, ok, err := decode(op.Response)
			if err != nil {
				return Result{}, err
			}
			if ok {
				return Result{State: StateDone, Artifact: artifact}, nil
			}
		}
	}

	// done with neither error nor artifact is a failure, never pending.
	return Result{State: StateFailed, Message: noVideoMessage}, nil
}

func decodeInlineBytes(r *OperationResponse) (Artifact, bool, error) {
	if len(r.Videos) == 0 || r.Videos[0].BytesBase64Encoded == "" {
		return Artifact{}, false, nil
	}
	data, err := base64.StdEncoding.DecodeString(r.Videos[0].BytesBase64Encoded)
	if err != nil {
		return Artifact{}, false, fmt.Errorf("veo: decode inline video bytes: %w", err)
	}
	return Artifact{Bytes: data}, true, nil
}

func decodeGCSURI(r *OperationResponse) (Artifact, bool, error) {
	if len(r.Videos) == 0 || r.Videos[0].GCSURI == "" {
		return Artifact{}, false, nil
	}
	return Artifact{URI: RewriteGSURI(r.Videos[0].GCSURI)}, true, nil
}

func decodeLegacyURI(r *OperationResponse) (Artifact, bool, error) {
	if len(r.GeneratedVideos) == 0 || r.GeneratedVideos[0].Video.URI == "" {
		return Artifact{}, false, nil
	}
	return Artifact{URI: RewriteGSURI(r.GeneratedVideos[0].Video.URI)}, true, nil
}
