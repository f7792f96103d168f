// Package jobs tracks narration jobs through their lifecycle and runs the
// synthesis pipeline for each one.
package jobs

import (
	"time"

	"github.com/google/uuid"

	"github.com/voxline/narravox/internal/timeline"
)

// Status is a job lifecycle state. Transitions are forward-only:
// pending → running → completed | failed. Terminal states never change.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Timing source labels reported in job metadata.
const (
	TimingSourceProvider  = "provider"
	TimingSourceEstimated = "estimated"
)

// Job is the full record of one narration request.
type Job struct {
	ID       string  `json:"job_id"`
	Provider string  `json:"provider"`
	VoiceID  string  `json:"voice_id"`
	Text     string  `json:"-"`
	Speed    float64 `json:"speed"`

	Status            Status  `json:"status"`
	Progress          float64 `json:"progress"`
	TotalSegments     int     `json:"total_segments"`
	CompletedSegments int     `json:"completed_segments"`

	Timing       *timeline.Timeline `json:"-"`
	TimingSource string             `json:"timing_source,omitempty"`
	DurationMS   int                `json:"duration_ms,omitempty"`
	SizeBytes    int                `json:"size_bytes,omitempty"`
	ErrorMessage string             `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a pending job with a fresh id.
func NewJob(provider, voiceID, text string, speed float64) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Provider:  provider,
		VoiceID:   voiceID,
		Text:      text,
		Speed:     speed,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}
