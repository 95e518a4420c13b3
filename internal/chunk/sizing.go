package chunk

const (
	// MinChunkBytes is the floor for derived chunk sizes.
	MinChunkBytes = 1 << 20 // 1 MiB
	// MaxChunkBytes caps peak per-chunk memory regardless of configuration.
	MaxChunkBytes = 64 << 20 // 64 MiB

	// memorySafetyFactor reserves 30% of the budget for runtime overhead.
	memorySafetyFactor = 0.7
)

// SizingConfig carries the inputs of the chunk size policy.
type SizingConfig struct {
	MaxParallelism    int
	FixedChunkBytes   int64
	MemoryBudgetBytes int64
}

// ChooseChunkSize derives a chunk length in bytes for a file of the given
// size. An explicit FixedChunkBytes override always wins. Otherwise the size
// aims for two chunks in flight per worker while keeping all concurrently
// buffered chunks within the memory budget, clamped to
// [MinChunkBytes, MaxChunkBytes].
func ChooseChunkSize(fileSizeBytes int64, cfg SizingConfig) int64 {
	if cfg.FixedChunkBytes > 0 {
		return cfg.FixedChunkBytes
	}

	parallelism := cfg.MaxParallelism
	if parallelism < 1 {
		parallelism = 1
	}

	available := int64(float64(cfg.MemoryBudgetBytes) * memorySafetyFactor)

	baseSize := fileSizeBytes / int64(parallelism*2)
	memoryCap := available / int64(parallelism)

	candidate := baseSize
	if memoryCap < candidate {
		candidate = memoryCap
	}

	if candidate < MinChunkBytes {
		return MinChunkBytes
	}
	if candidate > MaxChunkBytes {
		return MaxChunkBytes
	}
	return candidate
}
