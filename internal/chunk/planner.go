package chunk

// Range identifies one contiguous byte range of the source file.
type Range struct {
	Offset int64
	Length int64
	Last   bool
}

// End returns the exclusive end offset of the range.
func (r Range) End() int64 {
	return r.Offset + r.Length
}

// Plan splits a file of a known size into fixed-size ranges. The ranges tile
// [0, FileSize) exactly: no overlap, no gap, the final range possibly shorter
// and marked Last. A zero-size file plans zero ranges.
type Plan struct {
	FileSize  int64
	ChunkSize int64
}

// NewPlan creates a plan for the given file and chunk size. ChunkSize must be
// positive; sizes are not re-derived here (see ChooseChunkSize).
func NewPlan(fileSize, chunkSize int64) Plan {
	if chunkSize < 1 {
		chunkSize = 1
	}
	if fileSize < 0 {
		fileSize = 0
	}
	return Plan{FileSize: fileSize, ChunkSize: chunkSize}
}

// Count returns the total number of ranges in the plan.
func (p Plan) Count() int {
	if p.FileSize == 0 {
		return 0
	}
	return int((p.FileSize + p.ChunkSize - 1) / p.ChunkSize)
}

// Iter returns a fresh iterator over the plan's ranges. Iterators are
// independent; each starts at offset zero.
func (p Plan) Iter() *Iterator {
	return &Iterator{plan: p}
}

// Iterator walks a plan's ranges in ascending offset order.
type Iterator struct {
	plan   Plan
	offset int64
}

// Next returns the next range. ok is false once the plan is exhausted.
func (it *Iterator) Next() (r Range, ok bool) {
	if it.offset >= it.plan.FileSize {
		return Range{}, false
	}

	length := it.plan.ChunkSize
	if remaining := it.plan.FileSize - it.offset; remaining < length {
		length = remaining
	}

	r = Range{
		Offset: it.offset,
		Length: length,
		Last:   it.offset+length == it.plan.FileSize,
	}
	it.offset += length
	return r, true
}

// Reset rewinds the iterator to the start of the plan.
func (it *Iterator) Reset() {
	it.offset = 0
}
