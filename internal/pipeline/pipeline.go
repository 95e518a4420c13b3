// Package pipeline implements the chunked parallel transcoding core: chunk
// planning, bounded-concurrency dispatch, in-order output commit, progress
// reporting, and failure propagation.
package pipeline

import (
	"context"

	"github.com/caseyshiring/MediaTranscoder/internal/chunk"
	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

// Config bounds a pipeline run.
type Config struct {
	// MaxParallelism caps concurrent read+transform workers. Values below 1
	// are treated as 1.
	MaxParallelism int
	// FixedChunkBytes overrides the derived chunk size when positive.
	FixedChunkBytes int64
	// MemoryBudgetBytes drives automatic chunk sizing.
	MemoryBudgetBytes int64
	// BufferPool supplies chunk read buffers. When nil, Run creates a pool
	// sized to the chosen chunk size.
	BufferPool *chunk.Pool
}

// Source supplies the bytes and the format descriptor of the input file.
type Source interface {
	// Analyze returns the source's media descriptor. Idempotent; the first
	// call may perform the probe.
	Analyze(ctx context.Context) (*models.MediaDescriptor, error)
	// Size returns the file size in bytes.
	Size() int64
	// ReadRange fills p with the bytes at offset. It must fill p completely
	// or return an error.
	ReadRange(ctx context.Context, offset int64, p []byte) error
}

// Transformer converts one chunk's bytes. It must be safe for concurrent use
// and must not retain its input after returning. The returned buffer may be
// any length.
type Transformer interface {
	Transform(ctx context.Context, payload []byte, src *models.MediaDescriptor, opts models.TranscodeOptions) ([]byte, error)
}

// Writer commits transformed chunks to the output. The orchestrator invokes
// WriteChunk in strictly ascending range order, one call at a time; writers
// append sequentially and never reorder. Finalize runs exactly once, only
// after every chunk has been written.
type Writer interface {
	Init(ctx context.Context, opts models.TranscodeOptions, src *models.MediaDescriptor) error
	WriteChunk(ctx context.Context, r chunk.Range, payload []byte) error
	// Finalize completes the output and returns its size in bytes.
	Finalize(ctx context.Context) (int64, error)
	// Abort discards any partial output. Called after failure or cancellation.
	Abort() error
}
