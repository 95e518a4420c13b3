package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordJobCompleted(t *testing.T) {
	JobsCompletedTotal.Reset()

	RecordJobCompleted("completed", 120.5, "h264")
	RecordJobCompleted("failed", 30.2, "")
	RecordJobCompleted("completed", 42.0, "h265")

	completed := testutil.ToFloat64(JobsCompletedTotal.WithLabelValues("completed"))
	if completed != 2.0 {
		t.Errorf("Expected completed counter to be 2.0, got %f", completed)
	}

	failed := testutil.ToFloat64(JobsCompletedTotal.WithLabelValues("failed"))
	if failed != 1.0 {
		t.Errorf("Expected failed counter to be 1.0, got %f", failed)
	}
}

func TestRecordChunk(t *testing.T) {
	ChunksProcessedTotal.Reset()

	RecordChunk("committed")
	RecordChunk("committed")
	RecordChunk("transformed")

	committed := testutil.ToFloat64(ChunksProcessedTotal.WithLabelValues("committed"))
	if committed != 2.0 {
		t.Errorf("Expected committed counter to be 2.0, got %f", committed)
	}

	transformed := testutil.ToFloat64(ChunksProcessedTotal.WithLabelValues("transformed"))
	if transformed != 1.0 {
		t.Errorf("Expected transformed counter to be 1.0, got %f", transformed)
	}
}

func TestRecordTranscode(t *testing.T) {
	BytesTranscodedTotal.Reset()

	RecordTranscode(10<<20, 8<<20, 5.5e6)

	in := testutil.ToFloat64(BytesTranscodedTotal.WithLabelValues("in"))
	if in != float64(10<<20) {
		t.Errorf("Expected input bytes to be %d, got %f", 10<<20, in)
	}

	out := testutil.ToFloat64(BytesTranscodedTotal.WithLabelValues("out"))
	if out != float64(8<<20) {
		t.Errorf("Expected output bytes to be %d, got %f", 8<<20, out)
	}
}

func TestRecordStorageOperation(t *testing.T) {
	StorageOperationsTotal.Reset()

	RecordStorageOperation("upload", "ok", 1.234)
	RecordStorageOperation("read_range", "error", 0.2)

	counter := testutil.ToFloat64(StorageOperationsTotal.WithLabelValues("upload", "ok"))
	if counter != 1.0 {
		t.Errorf("Expected upload counter to be 1.0, got %f", counter)
	}

	failed := testutil.ToFloat64(StorageOperationsTotal.WithLabelValues("read_range", "error"))
	if failed != 1.0 {
		t.Errorf("Expected read_range error counter to be 1.0, got %f", failed)
	}
}

func TestRecordError(t *testing.T) {
	ErrorsTotal.Reset()

	RecordError("pipeline", "read")
	RecordError("pipeline", "read")
	RecordError("api", "validation")

	pipelineErrors := testutil.ToFloat64(ErrorsTotal.WithLabelValues("pipeline", "read"))
	if pipelineErrors != 2.0 {
		t.Errorf("Expected pipeline read errors to be 2.0, got %f", pipelineErrors)
	}

	apiErrors := testutil.ToFloat64(ErrorsTotal.WithLabelValues("api", "validation"))
	if apiErrors != 1.0 {
		t.Errorf("Expected API validation errors to be 1.0, got %f", apiErrors)
	}
}

func TestJobsInProgressGauge(t *testing.T) {
	JobsInProgress.Set(0)

	JobsInProgress.Inc()
	JobsInProgress.Inc()
	JobsInProgress.Dec()

	inProgress := testutil.ToFloat64(JobsInProgress)
	if inProgress != 1.0 {
		t.Errorf("Expected jobs in progress to be 1.0, got %f", inProgress)
	}
}
