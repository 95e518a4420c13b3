package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

// Cache provides job and progress caching using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// SetJob caches job metadata
func (c *Cache) SetJob(ctx context.Context, job *models.Job, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	key := fmt.Sprintf("job:%s", job.ID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetJob retrieves job metadata from cache
func (c *Cache) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	key := fmt.Sprintf("job:%s", jobID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get job from cache: %w", err)
	}

	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// DeleteJob removes a job from cache
func (c *Cache) DeleteJob(ctx context.Context, jobID string) error {
	key := fmt.Sprintf("job:%s", jobID)
	return c.client.Del(ctx, key).Err()
}

// SetJobProgress caches job progress for quick retrieval
func (c *Cache) SetJobProgress(ctx context.Context, jobID string, progress float64, ttl time.Duration) error {
	key := fmt.Sprintf("job:progress:%s", jobID)
	return c.client.Set(ctx, key, progress, ttl).Err()
}

// GetJobProgress retrieves job progress from cache
func (c *Cache) GetJobProgress(ctx context.Context, jobID string) (float64, error) {
	key := fmt.Sprintf("job:progress:%s", jobID)
	return c.client.Get(ctx, key).Float64()
}

// SetDescriptor caches an analyzed media descriptor keyed by source
func (c *Cache) SetDescriptor(ctx context.Context, sourceKey string, desc *models.MediaDescriptor, ttl time.Duration) error {
	data, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %w", err)
	}

	key := fmt.Sprintf("descriptor:%s", sourceKey)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetDescriptor retrieves a cached media descriptor
func (c *Cache) GetDescriptor(ctx context.Context, sourceKey string) (*models.MediaDescriptor, error) {
	key := fmt.Sprintf("descriptor:%s", sourceKey)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get descriptor from cache: %w", err)
	}

	var desc models.MediaDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal descriptor: %w", err)
	}

	return &desc, nil
}

// RequestCancel marks a job for cancellation. Workers poll this flag for
// jobs they are processing.
func (c *Cache) RequestCancel(ctx context.Context, jobID string, ttl time.Duration) error {
	key := fmt.Sprintf("job:cancel:%s", jobID)
	return c.client.Set(ctx, key, "1", ttl).Err()
}

// CancelRequested reports whether cancellation was requested for a job
func (c *Cache) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	key := fmt.Sprintf("job:cancel:%s", jobID)
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cancel flag: %w", err)
	}
	return n > 0, nil
}

// ClearCancelRequest removes a job's cancellation flag
func (c *Cache) ClearCancelRequest(ctx context.Context, jobID string) error {
	key := fmt.Sprintf("job:cancel:%s", jobID)
	return c.client.Del(ctx, key).Err()
}

// Ping checks connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
