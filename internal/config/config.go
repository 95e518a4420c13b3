package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Queue    QueueConfig
	Pipeline PipelineConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Tracing  TracingConfig
	Webhook  WebhookConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// PipelineConfig holds chunked transcoding pipeline configuration
type PipelineConfig struct {
	MaxParallelism    int
	FixedChunkBytes   int64
	MemoryBudgetBytes int64
	TempDir           string
	FFprobePath       string
	EncoderPath       string
	IdentityTransform bool
	MaxConcurrentJobs int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// MetricsConfig holds metrics server configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds distributed tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	JaegerEndpoint string
}

// WebhookConfig holds webhook notification configuration
type WebhookConfig struct {
	Endpoints []string
	Secret    string
	Timeout   time.Duration
	Retries   int
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "mediatranscoder")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Storage defaults
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "media")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)

	// Pipeline defaults
	viper.SetDefault("pipeline.maxParallelism", runtime.NumCPU())
	viper.SetDefault("pipeline.fixedChunkBytes", 0) // 0 = auto
	viper.SetDefault("pipeline.memoryBudgetBytes", detectMemoryBudget())
	viper.SetDefault("pipeline.tempDir", "/tmp/mediatranscoder")
	viper.SetDefault("pipeline.ffprobePath", "ffprobe")
	viper.SetDefault("pipeline.encoderPath", "ffmpeg")
	viper.SetDefault("pipeline.identityTransform", false)
	viper.SetDefault("pipeline.maxConcurrentJobs", 2)

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9091)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "mediatranscoder")
	viper.SetDefault("tracing.jaegerEndpoint", "http://localhost:14268/api/traces")

	// Webhook defaults
	viper.SetDefault("webhook.endpoints", []string{})
	viper.SetDefault("webhook.secret", "")
	viper.SetDefault("webhook.timeout", "30s")
	viper.SetDefault("webhook.retries", 3)
}

const fallbackMemoryBudget = int64(1 << 30) // 1 GiB

// detectMemoryBudget returns the host's available memory so auto chunk
// sizing adapts to the machine instead of assuming a fixed budget.
func detectMemoryBudget() int64 {
	stats, err := mem.VirtualMemory()
	if err != nil || stats.Available == 0 {
		return fallbackMemoryBudget
	}
	return int64(stats.Available)
}
