package domain

import (
	"encoding/json"
	"time"
)

type JobType string

const (
	JobSendMessage    JobType = "send_message"
	JobSendCampaign   JobType = "send_campaign"
	JobProcessWebhook JobType = "process_webhook"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the job will never be touched again.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// Job is one unit of deferred work. Payload is opaque to the queue; each
// handler owns its shape.
type Job struct {
	ID             string          `json:"id"`
	Type           JobType         `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	Status         JobStatus       `json:"status"`
	Attempts       int             `json:"attempts"`
	MaxAttempts    int             `json:"max_attempts"`
	LastError      string          `json:"last_error,omitempty"`
	NextEligibleAt time.Time       `json:"next_eligible_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
}

// BatchResult summarises one ProcessQueue invocation.
type BatchResult struct {
	Picked  int  `json:"picked"`
	Done    int  `json:"done"`
	Retried int  `json:"retried"`
	Failed  int  `json:"failed"`
	Skipped bool `json:"skipped,omitempty"`
}

// StaleResult counts jobs recovered from dead pollers.
type StaleResult struct {
	Requeued int64
	Failed   int64
}

type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Done       int64 `json:"done"`
	Failed     int64 `json:"failed"`
}
