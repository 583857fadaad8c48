package domain

import (
	"context"
	"time"
)

type LogKind string

const (
	LogRejected LogKind = "rejected"
	LogFailed   LogKind = "failed"
)

// LogEntry is an append-only record of a payload that was rejected or could
// not be processed, kept for operators.
type LogEntry struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id,omitempty"`
	Kind       LogKind   `json:"kind"`
	Event      string    `json:"event,omitempty"`
	InstanceID string    `json:"instance_id,omitempty"`
	Payload    string    `json:"payload"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

type LogRepository interface {
	Append(ctx context.Context, entry *LogEntry) error
	Recent(ctx context.Context, limit int) ([]*LogEntry, error)
}
