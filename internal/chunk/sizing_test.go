package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChooseChunkSizeFixedOverrideWins(t *testing.T) {
	cfg := SizingConfig{
		MaxParallelism:    4,
		FixedChunkBytes:   2 << 20,
		MemoryBudgetBytes: 1 << 30,
	}

	assert.Equal(t, int64(2<<20), ChooseChunkSize(10<<20, cfg))
	// Override is returned unchanged even outside the auto bounds.
	cfg.FixedChunkBytes = 128 << 20
	assert.Equal(t, int64(128<<20), ChooseChunkSize(10<<30, cfg))
}

func TestChooseChunkSizeStaysWithinBounds(t *testing.T) {
	tests := []struct {
		name        string
		fileSize    int64
		parallelism int
		budget      int64
	}{
		{"tiny file", 100, 4, 1 << 30},
		{"huge file small budget", 1 << 40, 8, 64 << 20},
		{"huge file huge budget", 1 << 40, 2, 1 << 40},
		{"zero parallelism", 1 << 30, 0, 1 << 30},
		{"negative parallelism", 1 << 30, -3, 1 << 30},
		{"zero budget", 1 << 30, 4, 0},
		{"one byte file", 1, 1, 1 << 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := ChooseChunkSize(tt.fileSize, SizingConfig{
				MaxParallelism:    tt.parallelism,
				MemoryBudgetBytes: tt.budget,
			})
			assert.GreaterOrEqual(t, size, int64(MinChunkBytes))
			assert.LessOrEqual(t, size, int64(MaxChunkBytes))
		})
	}
}

func TestChooseChunkSizeHonorsMemoryCap(t *testing.T) {
	// 80 MiB budget, 4 workers: 0.7*80/4 = 14 MiB per worker. The base size
	// from the file (1 GiB / 8 = 128 MiB) is larger, so the memory cap rules.
	size := ChooseChunkSize(1<<30, SizingConfig{
		MaxParallelism:    4,
		MemoryBudgetBytes: 80 << 20,
	})
	assert.Equal(t, int64(float64(80<<20)*0.7)/4, size)
}

func TestChooseChunkSizeTwoChunksPerWorker(t *testing.T) {
	// Generous budget: the file-derived base size wins. 64 MiB file, 4
	// workers: 64/8 = 8 MiB chunks.
	size := ChooseChunkSize(64<<20, SizingConfig{
		MaxParallelism:    4,
		MemoryBudgetBytes: 4 << 30,
	})
	assert.Equal(t, int64(8<<20), size)
}
