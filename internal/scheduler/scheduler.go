package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

// Scheduler dispatches pending jobs to the worker queue by priority, capped
// at a configured number of in-flight jobs.
type Scheduler struct {
	queue         *priorityQueue
	mu            sync.RWMutex
	maxConcurrent int
	activeJobs    int
	repo          Repository
	publisher     JobPublisher
	log           zerolog.Logger
	ctx           context.Context
	cancel        context.CancelFunc
}

// Repository defines the interface for job persistence
type Repository interface {
	GetPendingJobs(ctx context.Context, limit int) ([]*models.Job, error)
	UpdateJobStatus(ctx context.Context, jobID, status string) error
}

// JobPublisher defines the interface for publishing jobs to the queue
type JobPublisher interface {
	PublishJob(ctx context.Context, job *models.Job) error
}

// New creates a scheduler
func New(repo Repository, publisher JobPublisher, maxConcurrent int, log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		queue:         &priorityQueue{},
		maxConcurrent: maxConcurrent,
		repo:          repo,
		publisher:     publisher,
		log:           log,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start loads pending jobs and begins the dispatch loop
func (s *Scheduler) Start() error {
	heap.Init(s.queue)

	if err := s.loadPendingJobs(); err != nil {
		return fmt.Errorf("failed to load pending jobs: %w", err)
	}

	go s.dispatchLoop()

	s.log.Info().Msg("job scheduler started")
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cancel()
	s.log.Info().Msg("job scheduler stopped")
}

// Schedule adds a job to the dispatch queue
func (s *Scheduler) Schedule(job *models.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	heap.Push(s.queue, &queueItem{
		job:      job,
		priority: job.Priority,
		enqueued: time.Now(),
	})
}

func (s *Scheduler) loadPendingJobs() error {
	jobs, err := s.repo.GetPendingJobs(s.ctx, 1000)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		s.Schedule(job)
	}

	s.log.Info().Int("count", len(jobs)).Msg("loaded pending jobs")
	return nil
}

func (s *Scheduler) dispatchLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.dispatch()
		}
	}
}

func (s *Scheduler) dispatch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.activeJobs < s.maxConcurrent && s.queue.Len() > 0 {
		item := heap.Pop(s.queue).(*queueItem)

		if err := s.publisher.PublishJob(s.ctx, item.job); err != nil {
			s.log.Error().Err(err).Str("job_id", item.job.ID).Msg("failed to publish job")
			heap.Push(s.queue, item)
			break
		}

		if err := s.repo.UpdateJobStatus(s.ctx, item.job.ID, models.JobStatusQueued); err != nil {
			s.log.Error().Err(err).Str("job_id", item.job.ID).Msg("failed to update job status")
		}

		s.activeJobs++
		s.log.Info().
			Str("job_id", item.job.ID).
			Int("priority", item.priority).
			Int("active", s.activeJobs).
			Int("max", s.maxConcurrent).
			Msg("job dispatched")
	}
}

// JobCompleted notifies the scheduler that a job has finished
func (s *Scheduler) JobCompleted(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeJobs > 0 {
		s.activeJobs--
	}

	s.log.Debug().Str("job_id", jobID).Int("active", s.activeJobs).Msg("job slot released")
}

// QueueDepth returns the current queue depth
func (s *Scheduler) QueueDepth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queue.Len()
}

// ActiveJobs returns the number of in-flight jobs
func (s *Scheduler) ActiveJobs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.activeJobs
}

// priorityQueue orders jobs by priority, then FIFO within a priority.
type priorityQueue []*queueItem

type queueItem struct {
	job      *models.Job
	priority int
	enqueued time.Time
	index    int
}

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority > pq[j].priority
	}
	return pq[i].enqueued.Before(pq[j].enqueued)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[0 : n-1]
	return item
}
