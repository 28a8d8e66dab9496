package veo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperationName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    OperationAddress
		wantErr bool
	}{
		{
			name:  "well-formed operation name",
			input: "projects/demo-project/locations/us-central1/publishers/google/models/veo-3.0-generate-001/operations/12345",
			want: OperationAddress{
				Project:  "demo-project",
				Location: "us-central1",
				Model:    "veo-3.0-generate-001",
			},
		},
		{
			name:  "exactly eight segments",
			input: "projects/p/locations/l/publishers/google/models/m",
			want: OperationAddress{
				Project:  "p",
				Location: "l",
				Model:    "m",
			},
		},
		{
			name:    "too few segments",
			input:   "projects/p/locations/l/operations/123",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "bare operation id",
			input:   "12345",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOperationName(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidOperationName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRewriteGSURI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "gs URI is rewritten",
			input: "gs://my-bucket/videos/out.mp4",
			want:  "https://storage.googleapis.com/my-bucket/videos/out.mp4",
		},
		{
			name:  "https URI passes through",
			input: "https://example.com/video.mp4",
			want:  "https://example.com/video.mp4",
		},
		{
			name:  "empty string passes through",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteGSURI(tt.input))
		})
	}
}
