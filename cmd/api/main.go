package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caseyshiring/MediaTranscoder/internal/cache"
	"github.com/caseyshiring/MediaTranscoder/internal/config"
	"github.com/caseyshiring/MediaTranscoder/internal/database"
	"github.com/caseyshiring/MediaTranscoder/internal/logging"
	"github.com/caseyshiring/MediaTranscoder/internal/metrics"
	"github.com/caseyshiring/MediaTranscoder/internal/queue"
	"github.com/caseyshiring/MediaTranscoder/internal/scheduler"
	"github.com/caseyshiring/MediaTranscoder/internal/storage"
	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

const (
	jobCacheTTL   = 1 * time.Hour
	cancelFlagTTL = 10 * time.Minute
)

type API struct {
	db        *database.DB
	repo      *database.Repository
	cache     *cache.Cache
	storage   *storage.Storage
	queue     *queue.Queue
	scheduler *scheduler.Scheduler
	log       zerolog.Logger
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	log := logger.Zerolog()

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	repo := database.NewRepository(db)

	store, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("failed to initialize storage: %v", err)
	}

	c, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}
	defer c.Close()

	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("failed to connect to queue: %v", err)
	}
	defer q.Close()
	q.WithLogger(log)

	sched := scheduler.New(repo, q, cfg.Pipeline.MaxConcurrentJobs, log)
	if err := sched.Start(); err != nil {
		logger.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	api := &API{
		db:        db,
		repo:      repo,
		cache:     c,
		storage:   store,
		queue:     q,
		scheduler: sched,
		log:       log,
	}

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := metricsServer.Start(); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer metricsServer.Shutdown(context.Background())
	}

	router := setupRouter(api)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}

	log.Info().Msg("server stopped")
}

func setupRouter(api *API) *gin.Engine {
	router := gin.Default()

	router.GET("/health", api.healthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/jobs", api.createJob)
		v1.GET("/jobs", api.listJobs)
		v1.GET("/jobs/:id", api.getJob)
		v1.GET("/jobs/:id/progress", api.getJobProgress)
		v1.GET("/jobs/:id/output", api.getJobOutput)
		v1.POST("/jobs/:id/cancel", api.cancelJob)
		v1.GET("/queue", api.queueStats)
	}

	return router
}

func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.db.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	if err := api.cache.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type createJobRequest struct {
	SourceKey string                  `json:"source_key" binding:"required"`
	OutputKey string                  `json:"output_key"`
	Priority  int                     `json:"priority"`
	Options   models.TranscodeOptions `json:"options"`
}

func (api *API) createJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := req.Options.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := api.storage.StatSize(c.Request.Context(), req.SourceKey); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("source not found: %s", req.SourceKey)})
		return
	}

	if req.OutputKey == "" {
		req.OutputKey = defaultOutputKey(req.SourceKey, req.Options)
	}
	if req.Priority == 0 {
		req.Priority = models.JobPriorityNormal
	}

	now := time.Now()
	job := &models.Job{
		ID:        uuid.New().String(),
		SourceKey: req.SourceKey,
		OutputKey: req.OutputKey,
		Status:    models.JobStatusPending,
		Priority:  req.Priority,
		Options:   req.Options,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := api.repo.CreateJob(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to create job: %v", err)})
		return
	}

	api.scheduler.Schedule(job)
	api.cache.SetJob(c.Request.Context(), job, jobCacheTTL)

	c.JSON(http.StatusCreated, job)
}

// defaultOutputKey derives an output object key from the source key and the
// target container.
func defaultOutputKey(sourceKey string, opts models.TranscodeOptions) string {
	ext := filepath.Ext(sourceKey)
	base := strings.TrimSuffix(sourceKey, ext)
	if opts.Container != "" {
		ext = "." + opts.Container
	}
	return fmt.Sprintf("%s-transcoded%s", base, ext)
}

func (api *API) getJob(c *gin.Context) {
	jobID := c.Param("id")

	if job, err := api.cache.GetJob(c.Request.Context(), jobID); err == nil && job != nil {
		c.JSON(http.StatusOK, job)
		return
	}

	job, err := api.repo.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	api.cache.SetJob(c.Request.Context(), job, jobCacheTTL)
	c.JSON(http.StatusOK, job)
}

func (api *API) listJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	jobs, err := api.repo.ListJobs(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "limit": limit, "offset": offset})
}

func (api *API) getJobProgress(c *gin.Context) {
	jobID := c.Param("id")

	if progress, err := api.cache.GetJobProgress(c.Request.Context(), jobID); err == nil {
		c.JSON(http.StatusOK, gin.H{"job_id": jobID, "progress": progress})
		return
	}

	job, err := api.repo.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "progress": job.Progress, "status": job.Status})
}

func (api *API) getJobOutput(c *gin.Context) {
	jobID := c.Param("id")

	output, err := api.repo.GetOutputByJobID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "output not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, output)
}

func (api *API) cancelJob(c *gin.Context) {
	jobID := c.Param("id")

	job, err := api.repo.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if job.Terminal() {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("job already %s", job.Status)})
		return
	}

	// Pending and queued jobs are cancelled directly. A job a worker already
	// claimed is flagged instead; the worker polls the flag, aborts the
	// pipeline, and records the terminal state itself.
	err = api.repo.CancelJob(c.Request.Context(), jobID)
	if errors.Is(err, database.ErrNotCancellable) {
		if err := api.cache.RequestCancel(c.Request.Context(), jobID, cancelFlagTTL); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": "cancellation requested"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	api.cache.DeleteJob(c.Request.Context(), jobID)
	api.scheduler.JobCompleted(jobID)

	c.JSON(http.StatusOK, gin.H{"message": "job cancelled"})
}

func (api *API) queueStats(c *gin.Context) {
	depth, err := api.queue.GetQueueDepth()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"queue_depth": depth,
		"scheduled":   api.scheduler.QueueDepth(),
		"active_jobs": api.scheduler.ActiveJobs(),
	})
}
