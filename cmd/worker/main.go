package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/caseyshiring/MediaTranscoder/internal/cache"
	"github.com/caseyshiring/MediaTranscoder/internal/config"
	"github.com/caseyshiring/MediaTranscoder/internal/database"
	"github.com/caseyshiring/MediaTranscoder/internal/logging"
	"github.com/caseyshiring/MediaTranscoder/internal/metrics"
	"github.com/caseyshiring/MediaTranscoder/internal/queue"
	"github.com/caseyshiring/MediaTranscoder/internal/service"
	"github.com/caseyshiring/MediaTranscoder/internal/storage"
	"github.com/caseyshiring/MediaTranscoder/internal/tracing"
	"github.com/caseyshiring/MediaTranscoder/internal/webhook"
	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

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

	workerID := fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	logger = logger.WithWorkerID(workerID)
	log := logger.Zerolog()

	if cfg.Tracing.Enabled {
		tracer, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.Fatalf("failed to initialize tracing: %v", err)
		}
		defer closer.Close()
		_ = tracer
	}

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

	notifier := webhook.NewNotifier(cfg.Webhook.Endpoints, cfg.Webhook.Secret, cfg.Webhook.Timeout, cfg.Webhook.Retries, log)

	svc := service.New(repo, c, store, notifier, cfg.Pipeline, workerID, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := metricsServer.Start(); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer metricsServer.Shutdown(context.Background())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down worker")
		cancel()
	}()

	handler := func(job *models.Job) error {
		return svc.ProcessJob(ctx, job)
	}

	log.Info().Str("worker_id", workerID).Msg("worker started, waiting for jobs")
	if err := q.ConsumeJobs(ctx, handler); err != nil {
		logger.Fatalf("failed to consume jobs: %v", err)
	}

	<-ctx.Done()
	log.Info().Msg("worker stopped")
}
