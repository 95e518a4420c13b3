package pipeline

// Snapshot reports the completion state of a run. Snapshots emitted during a
// single run are monotonically non-decreasing in FractionComplete.
type Snapshot struct {
	FractionComplete float64 `json:"fraction_complete"`
	ChunksCompleted  int     `json:"chunks_completed"`
	TotalChunks      int     `json:"total_chunks"`
}

// ProgressSink receives progress snapshots. Report is fire-and-forget and
// must not block; a nil sink disables reporting.
type ProgressSink interface {
	Report(s Snapshot)
}

// SinkFunc adapts a function to the ProgressSink interface.
type SinkFunc func(s Snapshot)

// Report implements ProgressSink.
func (f SinkFunc) Report(s Snapshot) {
	f(s)
}

// progressTracker counts committed chunks and pushes snapshots. Increments
// happen under the resequencer's commit ordering, so snapshots are ordered.
type progressTracker struct {
	total     int
	completed int
	sink      ProgressSink
}

func newProgressTracker(total int, sink ProgressSink) *progressTracker {
	return &progressTracker{total: total, sink: sink}
}

// chunkCommitted records one committed chunk. Called with commits serialized.
func (t *progressTracker) chunkCommitted() {
	t.completed++
	if t.sink == nil {
		return
	}

	fraction := 1.0
	if t.total > 0 {
		fraction = float64(t.completed) / float64(t.total)
	}
	t.sink.Report(Snapshot{
		FractionComplete: fraction,
		ChunksCompleted:  t.completed,
		TotalChunks:      t.total,
	})
}
