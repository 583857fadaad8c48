package domain

import (
	"context"

	pkgError "github.com/AzielCF/az-inbox/pkg/error"
)

var ErrRuleNotFound = pkgError.NotFoundError("auto-reply rule not found")

type Repository interface {
	Create(ctx context.Context, rule *Rule) error
	// ListActive returns active rules ordered by creation (oldest first).
	ListActive(ctx context.Context) ([]*Rule, error)
	List(ctx context.Context) ([]*Rule, error)
	SetActive(ctx context.Context, id string, active bool) error
	IncrementUsage(ctx context.Context, id string) error
}
