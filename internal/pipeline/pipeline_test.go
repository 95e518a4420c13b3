package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/caseyshiring/MediaTranscoder/internal/chunk"
	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

// memSource serves a byte slice as a pipeline source.
type memSource struct {
	data       []byte
	desc       *models.MediaDescriptor
	analyzeErr error
	readErr    error
	readDelay  time.Duration
}

func newMemSource(n int) *memSource {
	data := make([]byte, n)
	rnd := rand.New(rand.NewSource(int64(n)))
	rnd.Read(data)
	return &memSource{
		data: data,
		desc: &models.MediaDescriptor{Container: "mp4", VideoCodec: "h264", Width: 1920, Height: 1080},
	}
}

func (s *memSource) Analyze(ctx context.Context) (*models.MediaDescriptor, error) {
	if s.analyzeErr != nil {
		return nil, s.analyzeErr
	}
	return s.desc, nil
}

func (s *memSource) Size() int64 { return int64(len(s.data)) }

func (s *memSource) ReadRange(ctx context.Context, offset int64, p []byte) error {
	if s.readErr != nil {
		return s.readErr
	}
	if s.readDelay > 0 {
		select {
		case <-time.After(s.readDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if offset < 0 || offset+int64(len(p)) > int64(len(s.data)) {
		return fmt.Errorf("range [%d, %d) out of bounds", offset, offset+int64(len(p)))
	}
	copy(p, s.data[offset:])
	return nil
}

// memWriter collects committed chunks and checks the commit order invariant.
type memWriter struct {
	mu         sync.Mutex
	buf        bytes.Buffer
	lastEnd    int64
	orderErr   error
	inited     bool
	finalized  bool
	aborted    bool
	initErr    error
	writeErr   error
	writeCalls int
}

func (w *memWriter) Init(ctx context.Context, opts models.TranscodeOptions, src *models.MediaDescriptor) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.initErr != nil {
		return w.initErr
	}
	w.inited = true
	return nil
}

func (w *memWriter) WriteChunk(ctx context.Context, r chunk.Range, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writeCalls++
	if w.writeErr != nil {
		return w.writeErr
	}
	if r.Offset != w.lastEnd {
		w.orderErr = fmt.Errorf("chunk at offset %d committed after end %d", r.Offset, w.lastEnd)
	}
	w.lastEnd = r.End()
	w.buf.Write(payload)
	return nil
}

func (w *memWriter) Finalize(ctx context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.finalized = true
	return int64(w.buf.Len()), nil
}

func (w *memWriter) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.aborted = true
	w.buf.Reset()
	return nil
}

func (w *memWriter) bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte(nil), w.buf.Bytes()...)
}

// identityTransform copies its input, optionally jittering completion order.
type identityTransform struct {
	jitter  time.Duration
	failAt  int64
	failErr error
	calls   int64
	mu      sync.Mutex
}

func (t *identityTransform) Transform(ctx context.Context, payload []byte, src *models.MediaDescriptor, opts models.TranscodeOptions) ([]byte, error) {
	t.mu.Lock()
	call := t.calls
	t.calls++
	t.mu.Unlock()

	if t.failErr != nil && call == t.failAt {
		return nil, t.failErr
	}
	if t.jitter > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(t.jitter))))
	}

	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// doublingTransform emits every input byte twice, so output chunks are
// larger than their source ranges.
type doublingTransform struct{}

func (doublingTransform) Transform(ctx context.Context, payload []byte, src *models.MediaDescriptor, opts models.TranscodeOptions) ([]byte, error) {
	out := make([]byte, 0, len(payload)*2)
	for _, b := range payload {
		out = append(out, b, b)
	}
	return out, nil
}
