package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrNotCancellable is returned by CancelJob when the job is not in a
// cancellable state.
var ErrNotCancellable = errors.New("job cannot be cancelled")

// ErrAlreadyTerminal is returned by guarded updates when the job row already
// reached a terminal state.
var ErrAlreadyTerminal = errors.New("job already in terminal state")

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Jobs

// CreateJob creates a new job record
func (r *Repository) CreateJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}

	query := `
		INSERT INTO jobs (id, source_key, output_key, status, priority, progress, options)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		job.ID, job.SourceKey, job.OutputKey, job.Status, job.Priority,
		job.Progress, job.Options,
	).Scan(&job.CreatedAt, &job.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJob retrieves a job by ID
func (r *Repository) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job

	query := `
		SELECT id, source_key, output_key, status, priority, progress, error_msg,
		       worker_id, started_at, completed_at, created_at, updated_at, options
		FROM jobs
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.SourceKey, &job.OutputKey, &job.Status, &job.Priority,
		&job.Progress, &job.ErrorMsg, &job.WorkerID, &job.StartedAt,
		&job.CompletedAt, &job.CreatedAt, &job.UpdatedAt, &job.Options,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// UpdateJob updates a job record
func (r *Repository) UpdateJob(ctx context.Context, job *models.Job) error {
	query := `
		UPDATE jobs
		SET status = $2, priority = $3, progress = $4, error_msg = $5,
		    worker_id = $6, started_at = $7, completed_at = $8, updated_at = now()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query,
		job.ID, job.Status, job.Priority, job.Progress, job.ErrorMsg,
		job.WorkerID, job.StartedAt, job.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	return nil
}

// CancelJob marks a pending or queued job as cancelled. Jobs already picked
// up by a worker are cancelled through the worker instead.
func (r *Repository) CancelJob(ctx context.Context, jobID string) error {
	query := `
		UPDATE jobs
		SET status = $2, completed_at = now(), updated_at = now()
		WHERE id = $1
		AND status IN ($3, $4)
	`

	tag, err := r.db.Pool.Exec(ctx, query, jobID,
		models.JobStatusCancelled, models.JobStatusPending, models.JobStatusQueued)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotCancellable
	}

	return nil
}

// UpdateJobIfActive updates a job record unless the row already reached a
// terminal state, so a concurrent cancellation is never overwritten.
func (r *Repository) UpdateJobIfActive(ctx context.Context, job *models.Job) error {
	query := `
		UPDATE jobs
		SET status = $2, priority = $3, progress = $4, error_msg = $5,
		    worker_id = $6, started_at = $7, completed_at = $8, updated_at = now()
		WHERE id = $1
		AND status NOT IN ($9, $10, $11)
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		job.ID, job.Status, job.Priority, job.Progress, job.ErrorMsg,
		job.WorkerID, job.StartedAt, job.CompletedAt,
		models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyTerminal
	}

	return nil
}

// UpdateJobStatus updates only a job's status
func (r *Repository) UpdateJobStatus(ctx context.Context, jobID, status string) error {
	query := `UPDATE jobs SET status = $2, updated_at = now() WHERE id = $1`

	_, err := r.db.Pool.Exec(ctx, query, jobID, status)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	return nil
}

// UpdateJobProgress updates only a job's progress fraction
func (r *Repository) UpdateJobProgress(ctx context.Context, jobID string, progress float64) error {
	query := `UPDATE jobs SET progress = $2, updated_at = now() WHERE id = $1`

	_, err := r.db.Pool.Exec(ctx, query, jobID, progress)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}

	return nil
}

// GetPendingJobs retrieves pending jobs ordered by priority then age
func (r *Repository) GetPendingJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	query := `
		SELECT id, source_key, output_key, status, priority, progress, error_msg,
		       worker_id, started_at, completed_at, created_at, updated_at, options
		FROM jobs
		WHERE status = $1
		ORDER BY priority DESC, created_at ASC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, models.JobStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// ListJobs retrieves jobs with pagination
func (r *Repository) ListJobs(ctx context.Context, limit, offset int) ([]*models.Job, error) {
	query := `
		SELECT id, source_key, output_key, status, priority, progress, error_msg,
		       worker_id, started_at, completed_at, created_at, updated_at, options
		FROM jobs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

func scanJobs(rows pgx.Rows) ([]*models.Job, error) {
	var jobs []*models.Job
	for rows.Next() {
		var job models.Job
		err := rows.Scan(
			&job.ID, &job.SourceKey, &job.OutputKey, &job.Status, &job.Priority,
			&job.Progress, &job.ErrorMsg, &job.WorkerID, &job.StartedAt,
			&job.CompletedAt, &job.CreatedAt, &job.UpdatedAt, &job.Options,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

// Outputs

// CreateOutput creates a new output record
func (r *Repository) CreateOutput(ctx context.Context, output *models.Output) error {
	if output.ID == "" {
		output.ID = uuid.New().String()
	}

	query := `
		INSERT INTO outputs (id, job_id, key, url, container, video_codec, width,
		                     height, size_bytes, chunks, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		output.ID, output.JobID, output.Key, output.URL, output.Container,
		output.VideoCodec, output.Width, output.Height, output.SizeBytes,
		output.Chunks, output.ElapsedMs,
	).Scan(&output.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}

	return nil
}

// GetOutputByJobID retrieves the output produced by a job
func (r *Repository) GetOutputByJobID(ctx context.Context, jobID string) (*models.Output, error) {
	var output models.Output

	query := `
		SELECT id, job_id, key, url, container, video_codec, width, height,
		       size_bytes, chunks, elapsed_ms, created_at
		FROM outputs
		WHERE job_id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, jobID).Scan(
		&output.ID, &output.JobID, &output.Key, &output.URL, &output.Container,
		&output.VideoCodec, &output.Width, &output.Height, &output.SizeBytes,
		&output.Chunks, &output.ElapsedMs, &output.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get output: %w", err)
	}

	return &output, nil
}
