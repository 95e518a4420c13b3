// Package queue distributes transcode jobs to workers over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/caseyshiring/MediaTranscoder/internal/config"
	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

const (
	TranscodeQueueName = "transcode_jobs"
	ExchangeName       = "mediatranscoder"

	// prefetchCount keeps each worker on a single job so the pipeline's
	// own parallelism is the only concurrency knob.
	prefetchCount = 1

	// maxPriority is the AMQP priority ceiling.
	maxPriority = 10
)

// Queue provides message queue operations
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     zerolog.Logger
}

// New connects to RabbitMQ and declares the job exchange, queue, and binding.
func New(cfg config.QueueConfig) (*Queue, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(channel); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &Queue{
		conn:    conn,
		channel: channel,
		log:     zerolog.Nop(),
	}, nil
}

// declareTopology sets up the durable exchange and queue and binds them.
// Declarations are idempotent, so API and workers can start in any order.
func declareTopology(channel *amqp.Channel) error {
	err := channel.ExchangeDeclare(ExchangeName, "direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(TranscodeQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(TranscodeQueueName, TranscodeQueueName, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// WithLogger sets the queue's logger.
func (q *Queue) WithLogger(log zerolog.Logger) *Queue {
	q.log = log
	return q
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// PublishJob publishes a job as a persistent message, carrying the job's
// priority through to the broker.
func (q *Queue) PublishJob(ctx context.Context, job *models.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	priority := uint8(job.Priority)
	if priority > maxPriority {
		priority = maxPriority
	}

	err = q.channel.PublishWithContext(ctx, ExchangeName, TranscodeQueueName,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			Priority:     priority,
		})
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	q.log.Debug().Str("job_id", job.ID).Int("priority", job.Priority).Msg("job published")
	return nil
}

// ConsumeJobs starts consuming jobs from the queue. The handler runs one job
// at a time per consumer; a handler error requeues the message, while a
// malformed message is dropped.
func (q *Queue) ConsumeJobs(ctx context.Context, handler func(*models.Job) error) error {
	if err := q.channel.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(TranscodeQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go q.consumeLoop(ctx, msgs, handler)
	return nil
}

func (q *Queue) consumeLoop(ctx context.Context, msgs <-chan amqp.Delivery, handler func(*models.Job) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				q.log.Warn().Msg("delivery channel closed, consumer stopping")
				return
			}

			var job models.Job
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				q.log.Error().Err(err).Msg("dropping malformed job message")
				msg.Nack(false, false)
				continue
			}

			if err := handler(&job); err != nil {
				q.log.Warn().Err(err).Str("job_id", job.ID).Msg("job handler failed, requeueing")
				msg.Nack(false, true)
			} else {
				msg.Ack(false)
			}
		}
	}
}

// GetQueueDepth returns the number of messages waiting in the queue.
func (q *Queue) GetQueueDepth() (int, error) {
	info, err := q.channel.QueueInspect(TranscodeQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return info.Messages, nil
}
