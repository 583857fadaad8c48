package domain

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	// ListEligible returns pending jobs with attempts left whose
	// next_eligible_at has passed, oldest first.
	ListEligible(ctx context.Context, now time.Time, limit int) ([]Job, error)
	// Claim moves a job from pending to processing under lease. It reports
	// false when another poller got there first.
	Claim(ctx context.Context, id, lease string, at time.Time) (bool, error)
	// Heartbeat refreshes updated_at while the lease is held. It reports
	// false once the lease is gone.
	Heartbeat(ctx context.Context, id, lease string, at time.Time) (bool, error)
	// The Mark* transitions return ErrLeaseLost unless lease still holds
	// the job in processing.
	MarkDone(ctx context.Context, id, lease string, at time.Time) error
	MarkRetry(ctx context.Context, id, lease string, attempts int, lastErr string, nextEligibleAt, at time.Time) error
	MarkFailed(ctx context.Context, id, lease string, attempts int, lastErr string, at time.Time) error
	// ReleaseStale handles jobs whose heartbeat stopped before cutoff. The
	// lost run counts as a failed attempt: jobs with attempts left return to
	// pending, the rest fail.
	ReleaseStale(ctx context.Context, cutoff, at time.Time) (StaleResult, error)
	CountByStatus(ctx context.Context) (Stats, error)
}
