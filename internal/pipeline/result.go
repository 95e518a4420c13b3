package pipeline

import "time"

// Result summarizes a completed transcode run.
type Result struct {
	InputSizeBytes  int64         `json:"input_size_bytes"`
	OutputSizeBytes int64         `json:"output_size_bytes"`
	ChunksProcessed int           `json:"chunks_processed"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Throughput returns input bytes per second of wall-clock time.
func (r Result) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.InputSizeBytes) / r.Elapsed.Seconds()
}

// CompressionRatio returns input size over output size.
func (r Result) CompressionRatio() float64 {
	if r.OutputSizeBytes == 0 {
		return 0
	}
	return float64(r.InputSizeBytes) / float64(r.OutputSizeBytes)
}
