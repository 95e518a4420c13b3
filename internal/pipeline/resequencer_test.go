package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseyshiring/MediaTranscoder/internal/chunk"
)

func TestResequencerParksEarlyArrivals(t *testing.T) {
	w := &memWriter{}
	rs := newResequencer(w, newProgressTracker(3, nil))
	ctx := context.Background()

	// Offsets 10 and 20 arrive before 0 and must wait.
	require.NoError(t, rs.Commit(ctx, chunk.Range{Offset: 10, Length: 10}, []byte("bbb")))
	require.NoError(t, rs.Commit(ctx, chunk.Range{Offset: 20, Length: 10, Last: true}, []byte("ccc")))
	assert.Zero(t, w.writeCalls)
	assert.Equal(t, 2, rs.PendingCount())

	require.NoError(t, rs.Commit(ctx, chunk.Range{Offset: 0, Length: 10}, []byte("aaa")))
	assert.Equal(t, 3, w.writeCalls)
	assert.Zero(t, rs.PendingCount())
	assert.Equal(t, []byte("aaabbbccc"), w.bytes())
	require.NoError(t, w.orderErr)
}

func TestResequencerInOrderArrivalsFlushImmediately(t *testing.T) {
	w := &memWriter{}
	rs := newResequencer(w, newProgressTracker(2, nil))
	ctx := context.Background()

	require.NoError(t, rs.Commit(ctx, chunk.Range{Offset: 0, Length: 4}, []byte("head")))
	assert.Equal(t, 1, w.writeCalls)

	require.NoError(t, rs.Commit(ctx, chunk.Range{Offset: 4, Length: 4, Last: true}, []byte("tail")))
	assert.Equal(t, 2, w.writeCalls)
	assert.Equal(t, []byte("headtail"), w.bytes())
}

func TestResequencerCursorIgnoresPayloadLength(t *testing.T) {
	w := &memWriter{}
	rs := newResequencer(w, newProgressTracker(2, nil))
	ctx := context.Background()

	// The payload is shorter than the source range; the cursor still
	// advances by the range length.
	require.NoError(t, rs.Commit(ctx, chunk.Range{Offset: 0, Length: 8}, []byte("x")))
	require.NoError(t, rs.Commit(ctx, chunk.Range{Offset: 8, Length: 8, Last: true}, []byte("yy")))

	assert.Equal(t, 2, w.writeCalls)
	assert.Equal(t, []byte("xyy"), w.bytes())
}

func TestResequencerWriteErrorStopsFlush(t *testing.T) {
	w := &memWriter{writeErr: assert.AnError}
	rs := newResequencer(w, newProgressTracker(2, nil))
	ctx := context.Background()

	err := rs.Commit(ctx, chunk.Range{Offset: 0, Length: 4}, []byte("data"))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestResequencerReportsProgressPerFlush(t *testing.T) {
	var fractions []float64
	tracker := newProgressTracker(4, SinkFunc(func(s Snapshot) {
		fractions = append(fractions, s.FractionComplete)
	}))
	w := &memWriter{}
	rs := newResequencer(w, tracker)
	ctx := context.Background()

	rs.Commit(ctx, chunk.Range{Offset: 4, Length: 4}, []byte("b"))
	rs.Commit(ctx, chunk.Range{Offset: 12, Length: 4, Last: true}, []byte("d"))
	assert.Empty(t, fractions)

	// Offset 0 releases the first two; offset 8 releases the rest.
	rs.Commit(ctx, chunk.Range{Offset: 0, Length: 4}, []byte("a"))
	assert.Equal(t, []float64{0.25, 0.5}, fractions)

	rs.Commit(ctx, chunk.Range{Offset: 8, Length: 4}, []byte("c"))
	assert.Equal(t, []float64{0.25, 0.5, 0.75, 1.0}, fractions)
}
