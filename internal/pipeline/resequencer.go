package pipeline

import (
	"context"
	"sync"

	"github.com/caseyshiring/MediaTranscoder/internal/chunk"
)

// resequencer restores offset order between unordered chunk completions and
// the writer. Early arrivals are parked until their predecessor commits; the
// writer only ever sees strictly ascending ranges.
type resequencer struct {
	mu         sync.Mutex
	writer     Writer
	tracker    *progressTracker
	nextOffset int64
	pending    map[int64]parkedChunk
}

type parkedChunk struct {
	r       chunk.Range
	payload []byte
}

func newResequencer(w Writer, tracker *progressTracker) *resequencer {
	return &resequencer{
		writer:  w,
		tracker: tracker,
		pending: make(map[int64]parkedChunk),
	}
}

// Commit hands a transformed chunk over for in-order writing. The write cursor
// advances by the input range length; the payload length may differ and is
// written in full.
func (rs *resequencer) Commit(ctx context.Context, r chunk.Range, payload []byte) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.pending[r.Offset] = parkedChunk{r: r, payload: payload}

	for {
		next, ok := rs.pending[rs.nextOffset]
		if !ok {
			return nil
		}
		if err := rs.writer.WriteChunk(ctx, next.r, next.payload); err != nil {
			return err
		}
		delete(rs.pending, rs.nextOffset)
		rs.nextOffset = next.r.End()
		rs.tracker.chunkCommitted()
	}
}

// PendingCount returns the number of parked, uncommitted chunks.
func (rs *resequencer) PendingCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.pending)
}
