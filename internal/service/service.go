// Package service runs transcode jobs end to end: claim, analyze, run the
// chunked pipeline, upload the output, and persist the terminal state.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caseyshiring/MediaTranscoder/internal/cache"
	"github.com/caseyshiring/MediaTranscoder/internal/config"
	"github.com/caseyshiring/MediaTranscoder/internal/database"
	"github.com/caseyshiring/MediaTranscoder/internal/logging"
	"github.com/caseyshiring/MediaTranscoder/internal/mediainfo"
	"github.com/caseyshiring/MediaTranscoder/internal/metrics"
	"github.com/caseyshiring/MediaTranscoder/internal/pipeline"
	"github.com/caseyshiring/MediaTranscoder/internal/source"
	"github.com/caseyshiring/MediaTranscoder/internal/storage"
	"github.com/caseyshiring/MediaTranscoder/internal/tracing"
	"github.com/caseyshiring/MediaTranscoder/internal/transform"
	"github.com/caseyshiring/MediaTranscoder/internal/webhook"
	"github.com/caseyshiring/MediaTranscoder/internal/writer"
	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

const (
	jobCacheTTL      = 1 * time.Hour
	progressCacheTTL = 10 * time.Minute

	// progressStep is the minimum fraction advance between persisted
	// progress updates, keeping DB write rate independent of chunk count.
	progressStep = 0.01

	// cancelPollInterval bounds how long a running pipeline keeps going
	// after cancellation is requested through the API.
	cancelPollInterval = 2 * time.Second
)

// Service processes transcode jobs pulled from the queue.
type Service struct {
	repo     *database.Repository
	cache    *cache.Cache
	storage  *storage.Storage
	notifier *webhook.Notifier
	orch     *pipeline.Orchestrator
	cfg      config.PipelineConfig
	workerID string
	logger   *logging.Logger
	log      zerolog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// New creates a job processing service
func New(repo *database.Repository, c *cache.Cache, store *storage.Storage, notifier *webhook.Notifier, cfg config.PipelineConfig, workerID string, logger *logging.Logger) *Service {
	var t pipeline.Transformer
	if cfg.IdentityTransform {
		t = transform.NewIdentity()
	} else {
		t = transform.NewCodec(cfg.EncoderPath)
	}

	log := logger.Zerolog()
	return &Service{
		repo:     repo,
		cache:    c,
		storage:  store,
		notifier: notifier,
		orch:     pipeline.NewOrchestrator(t).WithLogger(log),
		cfg:      cfg,
		workerID: workerID,
		logger:   logger,
		log:      log,
		active:   make(map[string]context.CancelFunc),
	}
}

// ProcessJob runs a single job to a terminal state. The returned error is
// reported to the queue consumer; the job row always reflects the outcome.
func (s *Service) ProcessJob(ctx context.Context, job *models.Job) error {
	log := s.logger.WithJobID(job.ID).Zerolog()

	// Re-read the row: the job may have been cancelled while queued.
	current, err := s.repo.GetJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if current.Terminal() {
		log.Info().Str("status", current.Status).Msg("skipping job already in terminal state")
		return nil
	}
	job = current

	span, ctx := tracing.StartJobSpan(ctx, job.ID)
	defer span.Finish()

	ctx, cancel := context.WithCancel(ctx)
	s.track(job.ID, cancel)
	defer s.untrack(job.ID)

	if err := s.markProcessing(ctx, job); err != nil {
		if errors.Is(err, database.ErrAlreadyTerminal) {
			log.Info().Msg("skipping job cancelled before processing")
			return nil
		}
		return err
	}

	go s.watchCancel(ctx, job.ID, cancelPollInterval)
	s.notifier.NotifyJobStarted(ctx, job)
	metrics.JobsInProgress.Inc()
	defer metrics.JobsInProgress.Dec()

	started := time.Now()
	result, desc, runErr := s.run(ctx, job)
	elapsed := time.Since(started)

	if runErr != nil {
		tracing.LogError(span, runErr)
		return s.finishFailed(ctx, job, runErr, elapsed, log)
	}

	return s.finishCompleted(ctx, job, result, desc, elapsed, log)
}

// Cancel aborts an in-flight job on this worker. Returns false when the job
// is not running here.
func (s *Service) Cancel(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancel, ok := s.active[jobID]
	if ok {
		cancel()
	}
	return ok
}

// watchCancel polls the cancellation flag for a running job and aborts its
// pipeline when the flag appears. The API sets the flag for jobs a worker
// already claimed.
func (s *Service) watchCancel(ctx context.Context, jobID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requested, err := s.cache.CancelRequested(ctx, jobID)
			if err != nil {
				s.log.Debug().Err(err).Str("job_id", jobID).Msg("failed to check cancel flag")
				continue
			}
			if requested {
				s.Cancel(jobID)
				return
			}
		}
	}
}

func (s *Service) track(jobID string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[jobID] = cancel
}

func (s *Service) untrack(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.active[jobID]; ok {
		cancel()
		delete(s.active, jobID)
	}
}

// run opens the source, executes the pipeline into a temp file, and uploads
// the finalized output.
func (s *Service) run(ctx context.Context, job *models.Job) (*pipeline.Result, *models.MediaDescriptor, error) {
	prober := mediainfo.NewProber(s.cfg.FFprobePath)

	src, err := source.OpenObject(ctx, s.storage, job.SourceKey, s.probeWithCache(prober, job.SourceKey), s.cfg.TempDir)
	if err != nil {
		return nil, nil, err
	}

	outPath := filepath.Join(s.cfg.TempDir, fmt.Sprintf("%s-%s", job.ID, filepath.Base(job.OutputKey)))
	w := writer.NewFileWriter(outPath)
	defer os.Remove(outPath)

	result, err := s.orch.Run(ctx, src, w, job.Options, pipeline.Config{
		MaxParallelism:    s.cfg.MaxParallelism,
		FixedChunkBytes:   s.cfg.FixedChunkBytes,
		MemoryBudgetBytes: s.cfg.MemoryBudgetBytes,
	}, s.progressSink(job.ID))
	if err != nil {
		return nil, nil, err
	}

	desc, err := src.Analyze(ctx)
	if err != nil {
		return nil, nil, err
	}

	if err := s.storage.UploadFile(ctx, job.OutputKey, outPath); err != nil {
		return nil, nil, fmt.Errorf("failed to upload output: %w", err)
	}

	s.logger.LogTranscodeResult(job.ID, result.InputSizeBytes, result.OutputSizeBytes, result.ChunksProcessed, result.Elapsed)

	return result, desc, nil
}

// probeWithCache wraps a prober so repeated jobs on the same source skip the
// ffprobe run.
func (s *Service) probeWithCache(prober source.Prober, sourceKey string) source.Prober {
	return proberFunc(func(ctx context.Context, path string) (*models.MediaDescriptor, error) {
		if desc, err := s.cache.GetDescriptor(ctx, sourceKey); err == nil && desc != nil {
			return desc, nil
		}

		desc, err := prober.Probe(ctx, path)
		if err != nil {
			return nil, err
		}

		if err := s.cache.SetDescriptor(ctx, sourceKey, desc, jobCacheTTL); err != nil {
			s.log.Debug().Err(err).Str("source_key", sourceKey).Msg("failed to cache descriptor")
		}
		return desc, nil
	})
}

type proberFunc func(ctx context.Context, path string) (*models.MediaDescriptor, error)

func (f proberFunc) Probe(ctx context.Context, path string) (*models.MediaDescriptor, error) {
	return f(ctx, path)
}

// progressSink persists progress to the database and cache, throttled so a
// run with many chunks does not hammer the job row.
func (s *Service) progressSink(jobID string) pipeline.ProgressSink {
	var lastPersisted float64

	return pipeline.SinkFunc(func(snap pipeline.Snapshot) {
		metrics.RecordChunk("committed")

		if snap.FractionComplete < 1.0 && snap.FractionComplete-lastPersisted < progressStep {
			return
		}
		lastPersisted = snap.FractionComplete

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.repo.UpdateJobProgress(ctx, jobID, snap.FractionComplete); err != nil {
			s.log.Debug().Err(err).Str("job_id", jobID).Msg("failed to persist progress")
		}
		if err := s.cache.SetJobProgress(ctx, jobID, snap.FractionComplete, progressCacheTTL); err != nil {
			s.log.Debug().Err(err).Str("job_id", jobID).Msg("failed to cache progress")
		}
	})
}

func (s *Service) markProcessing(ctx context.Context, job *models.Job) error {
	now := time.Now()
	job.Status = models.JobStatusProcessing
	job.WorkerID = s.workerID
	job.StartedAt = &now

	if err := s.repo.UpdateJobIfActive(ctx, job); err != nil {
		if errors.Is(err, database.ErrAlreadyTerminal) {
			return err
		}
		return fmt.Errorf("failed to mark job processing: %w", err)
	}
	if err := s.cache.SetJob(ctx, job, jobCacheTTL); err != nil {
		s.log.Debug().Err(err).Str("job_id", job.ID).Msg("failed to cache job")
	}
	return nil
}

func (s *Service) finishCompleted(ctx context.Context, job *models.Job, result *pipeline.Result, desc *models.MediaDescriptor, elapsed time.Duration, log zerolog.Logger) error {
	now := time.Now()
	job.Status = models.JobStatusCompleted
	job.Progress = 1.0
	job.CompletedAt = &now

	if err := s.repo.UpdateJobIfActive(ctx, job); err != nil {
		if errors.Is(err, database.ErrAlreadyTerminal) {
			log.Info().Msg("job reached a terminal state elsewhere, discarding result")
			s.cache.ClearCancelRequest(ctx, job.ID)
			return nil
		}
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	s.cache.ClearCancelRequest(ctx, job.ID)

	target := job.Options.Resolve(*desc)
	output := &models.Output{
		ID:         uuid.New().String(),
		JobID:      job.ID,
		Key:        job.OutputKey,
		Container:  target.Container,
		VideoCodec: target.VideoCodec,
		Width:      target.Width,
		Height:     target.Height,
		SizeBytes:  result.OutputSizeBytes,
		Chunks:     result.ChunksProcessed,
		ElapsedMs:  result.Elapsed.Milliseconds(),
		CreatedAt:  now,
	}

	if url, err := s.storage.GetURL(ctx, job.OutputKey); err == nil {
		output.URL = url
	}
	if err := s.repo.CreateOutput(ctx, output); err != nil {
		log.Error().Err(err).Msg("failed to record output")
	}

	s.cache.SetJob(ctx, job, jobCacheTTL)
	s.notifier.NotifyJobCompleted(ctx, job)
	metrics.RecordJobCompleted(models.JobStatusCompleted, elapsed.Seconds(), target.VideoCodec)
	metrics.RecordTranscode(result.InputSizeBytes, result.OutputSizeBytes, result.Throughput())

	log.Info().Str("output_key", job.OutputKey).Msg("job completed")
	return nil
}

func (s *Service) finishFailed(ctx context.Context, job *models.Job, runErr error, elapsed time.Duration, log zerolog.Logger) error {
	// Finish bookkeeping even when the job context itself was cancelled.
	ctx = context.WithoutCancel(ctx)

	now := time.Now()
	job.CompletedAt = &now
	job.ErrorMsg = runErr.Error()

	cancelled := errors.Is(runErr, pipeline.ErrCancelled)
	if cancelled {
		job.Status = models.JobStatusCancelled
	} else {
		job.Status = models.JobStatusFailed
	}

	if err := s.repo.UpdateJobIfActive(ctx, job); err != nil && !errors.Is(err, database.ErrAlreadyTerminal) {
		log.Error().Err(err).Msg("failed to mark job failed")
	}
	s.cache.SetJob(ctx, job, jobCacheTTL)
	s.cache.ClearCancelRequest(ctx, job.ID)

	if cancelled {
		s.notifier.NotifyJobCancelled(ctx, job)
		metrics.RecordJobCompleted(models.JobStatusCancelled, elapsed.Seconds(), "")
		log.Info().Msg("job cancelled")
		return nil
	}

	s.notifier.NotifyJobFailed(ctx, job)
	metrics.RecordJobCompleted(models.JobStatusFailed, elapsed.Seconds(), "")
	metrics.RecordError("pipeline", errorType(runErr))
	log.Error().Err(runErr).Msg("job failed")

	return runErr
}

func errorType(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrSourceNotFound):
		return "source_not_found"
	case errors.Is(err, pipeline.ErrAnalysisFailure):
		return "analysis"
	case errors.Is(err, pipeline.ErrReadFailure):
		return "read"
	case errors.Is(err, pipeline.ErrTransformFailure):
		return "transform"
	case errors.Is(err, pipeline.ErrWriteFailure):
		return "write"
	case errors.Is(err, pipeline.ErrInvalidConfiguration):
		return "configuration"
	default:
		return "unknown"
	}
}
