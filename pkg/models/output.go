package models

import "time"

// Output represents a finalized transcode output
type Output struct {
	ID         string    `json:"id" db:"id"`
	JobID      string    `json:"job_id" db:"job_id"`
	Key        string    `json:"key" db:"key"`
	URL        string    `json:"url,omitempty" db:"url"`
	Container  string    `json:"container" db:"container"`
	VideoCodec string    `json:"video_codec" db:"video_codec"`
	Width      int       `json:"width" db:"width"`
	Height     int       `json:"height" db:"height"`
	SizeBytes  int64     `json:"size_bytes" db:"size_bytes"`
	Chunks     int       `json:"chunks" db:"chunks"`
	ElapsedMs  int64     `json:"elapsed_ms" db:"elapsed_ms"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
