package domain

import "context"

// Setting is a per-tenant override of a configuration default.
type Setting struct {
	Key   string
	Value string
}

// ISettingsRepository persists overrides for the tenant on the context.
type ISettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error

	InitSchema(ctx context.Context) error
}

const (
	KeyInboxDefaultPriority = "inbox_default_priority"
)
