package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(p Plan) []Range {
	var ranges []Range
	it := p.Iter()
	for {
		r, ok := it.Next()
		if !ok {
			break
		}
		ranges = append(ranges, r)
	}
	return ranges
}

func TestPlanTilesFileExactly(t *testing.T) {
	tests := []struct {
		name      string
		fileSize  int64
		chunkSize int64
	}{
		{"even split", 10 << 20, 2 << 20},
		{"uneven tail", 10<<20 + 123, 2 << 20},
		{"single chunk", 100, 1 << 20},
		{"chunk of one byte", 17, 1},
		{"file equals chunk", 4096, 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranges := collect(NewPlan(tt.fileSize, tt.chunkSize))
			require.NotEmpty(t, ranges)

			var total int64
			var lastCount int
			for i, r := range ranges {
				assert.Positive(t, r.Length)
				assert.Equal(t, total, r.Offset, "ranges must be contiguous")
				total += r.Length
				if r.Last {
					lastCount++
					assert.Equal(t, len(ranges)-1, i, "only the final range may be last")
				}
			}
			assert.Equal(t, tt.fileSize, total, "lengths must sum to the file size")
			assert.Equal(t, 1, lastCount)
			assert.Equal(t, len(ranges), NewPlan(tt.fileSize, tt.chunkSize).Count())
		})
	}
}

func TestPlanZeroSizeFile(t *testing.T) {
	p := NewPlan(0, 4<<20)
	assert.Equal(t, 0, p.Count())
	assert.Empty(t, collect(p))
}

func TestPlanTenMiBEvenSplit(t *testing.T) {
	// 10 MiB split at 2 MiB: exactly five ranges, last marked on the fifth.
	ranges := collect(NewPlan(10<<20, 2<<20))
	require.Len(t, ranges, 5)

	for i, r := range ranges {
		assert.Equal(t, int64(i)*(2<<20), r.Offset)
		assert.Equal(t, int64(2<<20), r.Length)
		assert.Equal(t, i == 4, r.Last)
	}
}

func TestIteratorReset(t *testing.T) {
	it := NewPlan(5<<20, 2<<20).Iter()

	first, ok := it.Next()
	require.True(t, ok)

	for {
		if _, ok := it.Next(); !ok {
			break
		}
	}

	it.Reset()
	again, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, first, again)
}

func TestIteratorsAreIndependent(t *testing.T) {
	p := NewPlan(6<<20, 2<<20)

	a := p.Iter()
	b := p.Iter()

	ra, _ := a.Next()
	ra2, _ := a.Next()
	rb, _ := b.Next()

	assert.Equal(t, int64(0), ra.Offset)
	assert.Equal(t, int64(2<<20), ra2.Offset)
	assert.Equal(t, int64(0), rb.Offset, "a fresh iterator starts at zero")
}
