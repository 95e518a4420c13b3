package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Job represents a transcoding job
type Job struct {
	ID          string           `json:"id" db:"id"`
	SourceKey   string           `json:"source_key" db:"source_key"`
	OutputKey   string           `json:"output_key" db:"output_key"`
	Status      string           `json:"status" db:"status"`
	Priority    int              `json:"priority" db:"priority"`
	Progress    float64          `json:"progress" db:"progress"`
	ErrorMsg    string           `json:"error_msg,omitempty" db:"error_msg"`
	WorkerID    string           `json:"worker_id,omitempty" db:"worker_id"`
	StartedAt   *time.Time       `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
	Options     TranscodeOptions `json:"options" db:"options"`
}

// Value implements driver.Valuer for database storage
func (o TranscodeOptions) Value() (driver.Value, error) {
	return json.Marshal(o)
}

// Scan implements sql.Scanner for database retrieval
func (o *TranscodeOptions) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// JobStatus constants
const (
	JobStatusPending    = "pending"
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)

// JobPriority constants
const (
	JobPriorityLow    = 0
	JobPriorityNormal = 5
	JobPriorityHigh   = 10
)

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}
