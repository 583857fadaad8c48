package domain

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, c *Campaign) error
	Get(ctx context.Context, id string) (*Campaign, error)
	List(ctx context.Context) ([]*Campaign, error)
	// MarkLaunched moves a draft campaign to status with its audience size.
	// It reports false when the campaign was no longer a draft.
	MarkLaunched(ctx context.Context, id string, status Status, total int) (bool, error)
	MarkStarted(ctx context.Context, id string, at time.Time) error
	UpdateProgress(ctx context.Context, id string, sent, failed, progress int) error
	Complete(ctx context.Context, id string, status Status, at time.Time) error
	IncrementDelivered(ctx context.Context, id string) error
	IncrementRead(ctx context.Context, id string) error
}
