package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Job Metrics
	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediatranscoder_jobs_completed_total",
			Help: "Total number of completed transcoding jobs",
		},
		[]string{"status"},
	)

	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediatranscoder_jobs_in_progress",
			Help: "Number of jobs currently being processed",
		},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediatranscoder_job_duration_seconds",
			Help:    "Job processing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		},
		[]string{"codec"},
	)

	// Pipeline Metrics
	ChunksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediatranscoder_chunks_processed_total",
			Help: "Total number of chunks processed",
		},
		[]string{"stage"},
	)

	ChunkSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediatranscoder_chunk_size_bytes",
			Help:    "Chosen chunk size in bytes",
			Buckets: prometheus.ExponentialBuckets(1<<20, 2, 7), // 1MiB to 64MiB
		},
	)

	PipelineWorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediatranscoder_pipeline_workers_active",
			Help: "Number of chunk workers currently in flight",
		},
	)

	BytesTranscodedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediatranscoder_bytes_transcoded_total",
			Help: "Total bytes read from sources and written to outputs",
		},
		[]string{"direction"},
	)

	TranscodeThroughput = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediatranscoder_transcode_throughput_bytes_per_second",
			Help:    "Input bytes processed per second of wall-clock time",
			Buckets: prometheus.ExponentialBuckets(1<<20, 2, 12),
		},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediatranscoder_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediatranscoder_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediatranscoder_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordJobCompleted records a job completion
func RecordJobCompleted(status string, duration float64, codec string) {
	JobsCompletedTotal.WithLabelValues(status).Inc()
	JobDuration.WithLabelValues(codec).Observe(duration)
}

// RecordChunk records one chunk passing a pipeline stage
func RecordChunk(stage string) {
	ChunksProcessedTotal.WithLabelValues(stage).Inc()
}

// RecordTranscode records transcode volume and throughput
func RecordTranscode(inputBytes, outputBytes int64, throughput float64) {
	BytesTranscodedTotal.WithLabelValues("in").Add(float64(inputBytes))
	BytesTranscodedTotal.WithLabelValues("out").Add(float64(outputBytes))
	TranscodeThroughput.Observe(throughput)
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string, duration float64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
