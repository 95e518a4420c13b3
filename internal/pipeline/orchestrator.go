package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/caseyshiring/MediaTranscoder/internal/chunk"
	"github.com/caseyshiring/MediaTranscoder/internal/metrics"
	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

// Orchestrator runs transcodes to completion under bounded concurrency.
type Orchestrator struct {
	transformer Transformer
	log         zerolog.Logger
}

// NewOrchestrator creates an orchestrator backed by the given transformer.
func NewOrchestrator(t Transformer) *Orchestrator {
	return &Orchestrator{
		transformer: t,
		log:         zerolog.Nop(),
	}
}

// WithLogger sets the orchestrator's logger.
func (o *Orchestrator) WithLogger(log zerolog.Logger) *Orchestrator {
	o.log = log
	return o
}

// Run executes one transcode: analyze, plan, fan out chunk work under the
// concurrency bound, commit output in source order, finalize. On failure or
// cancellation the writer is aborted and no finalized output remains.
func (o *Orchestrator) Run(ctx context.Context, source Source, writer Writer, opts models.TranscodeOptions, cfg Config, sink ProgressSink) (*Result, error) {
	started := time.Now()

	if source == nil || writer == nil {
		return nil, failf(ErrInvalidConfiguration, fmt.Errorf("source and writer are required"))
	}
	if o.transformer == nil {
		return nil, failf(ErrInvalidConfiguration, fmt.Errorf("transformer is required"))
	}
	if err := opts.Validate(); err != nil {
		return nil, failf(ErrInvalidConfiguration, err)
	}

	desc, err := source.Analyze(ctx)
	if err != nil {
		return nil, failf(ErrAnalysisFailure, err)
	}

	if err := writer.Init(ctx, opts, desc); err != nil {
		return nil, failf(ErrWriteFailure, err)
	}

	fileSize := source.Size()
	chunkSize := chunk.ChooseChunkSize(fileSize, chunk.SizingConfig{
		MaxParallelism:    cfg.MaxParallelism,
		FixedChunkBytes:   cfg.FixedChunkBytes,
		MemoryBudgetBytes: cfg.MemoryBudgetBytes,
	})
	plan := chunk.NewPlan(fileSize, chunkSize)
	total := plan.Count()
	metrics.ChunkSizeBytes.Observe(float64(chunkSize))

	o.log.Debug().
		Int64("file_size", fileSize).
		Int64("chunk_size", chunkSize).
		Int("total_chunks", total).
		Msg("transcode planned")

	// Zero-size source: nothing to dispatch, finalize an empty output.
	if total == 0 {
		outSize, err := writer.Finalize(ctx)
		if err != nil {
			return nil, failf(ErrWriteFailure, err)
		}
		return &Result{OutputSizeBytes: outSize, Elapsed: time.Since(started)}, nil
	}

	parallelism := cfg.MaxParallelism
	if parallelism < 1 {
		parallelism = 1
	}

	pool := cfg.BufferPool
	if pool == nil {
		pool = chunk.NewPool(chunkSize)
	}
	tracker := newProgressTracker(total, sink)
	reseq := newResequencer(writer, tracker)

	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		firstErr error
		failed   = make(chan struct{})
	)

	fail := func(err error) {
		failOnce.Do(func() {
			firstErr = err
			close(failed)
		})
		if err != firstErr {
			o.log.Debug().Err(err).Msg("suppressing secondary chunk failure")
		}
	}

	aborted := func() bool {
		select {
		case <-failed:
			return true
		case <-ctx.Done():
			return true
		default:
			return false
		}
	}

	sem := make(chan struct{}, parallelism)

	it := plan.Iter()
dispatch:
	for {
		r, ok := it.Next()
		if !ok {
			break
		}

		// Stop admitting new ranges once cancelled or failed; in-flight
		// workers drain on their own.
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		case <-failed:
			break dispatch
		}

		wg.Add(1)
		go func(r chunk.Range) {
			defer wg.Done()
			defer func() { <-sem }()

			metrics.PipelineWorkersActive.Inc()
			defer metrics.PipelineWorkersActive.Dec()

			if aborted() {
				return
			}

			buf := pool.Get(r.Length)
			if err := source.ReadRange(ctx, r.Offset, buf); err != nil {
				pool.Put(buf)
				fail(failf(ErrReadFailure, err))
				return
			}

			out, err := o.transformer.Transform(ctx, buf, desc, opts)
			pool.Put(buf)
			if err != nil {
				fail(failf(ErrTransformFailure, err))
				return
			}

			if aborted() {
				return
			}

			if err := reseq.Commit(ctx, r, out); err != nil {
				fail(failf(ErrWriteFailure, err))
			}
		}(r)
	}

	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = failf(ErrCancelled, ctx.Err())
	}

	if firstErr != nil {
		if err := writer.Abort(); err != nil {
			o.log.Warn().Err(err).Msg("failed to discard partial output")
		}
		if n := pool.Outstanding(); n != 0 {
			o.log.Error().Int64("outstanding", n).Msg("chunk buffers leaked")
		}
		return nil, firstErr
	}

	outSize, err := writer.Finalize(ctx)
	if err != nil {
		return nil, failf(ErrWriteFailure, err)
	}

	return &Result{
		InputSizeBytes:  fileSize,
		OutputSizeBytes: outSize,
		ChunksProcessed: total,
		Elapsed:         time.Since(started),
	}, nil
}
