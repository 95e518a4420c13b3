package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

// Event names delivered to configured endpoints.
const (
	EventJobStarted   = "job.started"
	EventJobCompleted = "job.completed"
	EventJobFailed    = "job.failed"
	EventJobCancelled = "job.cancelled"
)

// Event is the payload delivered to webhook endpoints.
type Event struct {
	ID        string      `json:"id"`
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Notifier delivers job lifecycle notifications to configured HTTP endpoints.
// Deliveries are signed with HMAC-SHA256 when a secret is configured and
// retried with backoff on failure.
type Notifier struct {
	client    *http.Client
	endpoints []string
	secret    string
	retries   int
	log       zerolog.Logger
}

// NewNotifier creates a notifier for the given endpoints
func NewNotifier(endpoints []string, secret string, timeout time.Duration, retries int, log zerolog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if retries < 0 {
		retries = 0
	}

	return &Notifier{
		client:    &http.Client{Timeout: timeout},
		endpoints: endpoints,
		secret:    secret,
		retries:   retries,
		log:       log,
	}
}

// Notify sends an event to all configured endpoints
func (n *Notifier) Notify(ctx context.Context, event string, data interface{}) error {
	if len(n.endpoints) == 0 {
		return nil
	}

	payload := Event{
		ID:        uuid.New().String(),
		Event:     event,
		Timestamp: time.Now(),
		Data:      data,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	for _, endpoint := range n.endpoints {
		go n.deliver(context.Background(), endpoint, payload.ID, event, body)
	}

	return nil
}

// deliver attempts delivery to a single endpoint with retries
func (n *Notifier) deliver(ctx context.Context, endpoint, deliveryID, event string, body []byte) {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= n.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if err := n.send(ctx, endpoint, deliveryID, event, body); err != nil {
			n.log.Warn().
				Err(err).
				Str("endpoint", endpoint).
				Str("event", event).
				Int("attempt", attempt+1).
				Msg("webhook delivery failed")
			continue
		}

		n.log.Debug().
			Str("endpoint", endpoint).
			Str("event", event).
			Msg("webhook delivered")
		return
	}

	n.log.Error().
		Str("endpoint", endpoint).
		Str("event", event).
		Int("retries", n.retries).
		Msg("webhook delivery abandoned")
}

func (n *Notifier) send(ctx context.Context, endpoint, deliveryID, event string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "MediaTranscoder-Webhook/1.0")
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-Delivery", deliveryID)

	if n.secret != "" {
		req.Header.Set("X-Webhook-Signature", n.signature(body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	return nil
}

// signature generates the HMAC-SHA256 signature for a payload
func (n *Notifier) signature(body []byte) string {
	h := hmac.New(sha256.New, []byte(n.secret))
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks a received signature against a payload and secret.
func VerifySignature(body []byte, secret, signature string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	expected := "sha256=" + hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// NotifyJobStarted sends notification when a job starts
func (n *Notifier) NotifyJobStarted(ctx context.Context, job *models.Job) error {
	return n.Notify(ctx, EventJobStarted, job)
}

// NotifyJobCompleted sends notification when a job completes
func (n *Notifier) NotifyJobCompleted(ctx context.Context, job *models.Job) error {
	return n.Notify(ctx, EventJobCompleted, job)
}

// NotifyJobFailed sends notification when a job fails
func (n *Notifier) NotifyJobFailed(ctx context.Context, job *models.Job) error {
	return n.Notify(ctx, EventJobFailed, job)
}

// NotifyJobCancelled sends notification when a job is cancelled
func (n *Notifier) NotifyJobCancelled(ctx context.Context, job *models.Job) error {
	return n.Notify(ctx, EventJobCancelled, job)
}
