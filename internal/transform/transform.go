// Package transform provides chunk transformers for the pipeline. A
// transformer owns its input only for the duration of the call and hands back
// a freshly owned output buffer.
package transform

import (
	"context"

	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

// Identity copies chunk bytes unchanged. Used for container-preserving runs
// and as the deterministic transformer in tests.
type Identity struct{}

// NewIdentity creates an identity transformer.
func NewIdentity() *Identity {
	return &Identity{}
}

// Transform returns a copy of the payload. The input buffer is returned to
// its pool by the caller, so the copy is required.
func (t *Identity) Transform(_ context.Context, payload []byte, _ *models.MediaDescriptor, _ models.TranscodeOptions) ([]byte, error) {
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}
