// Package tenant carries the authenticated tenant and user on a context.
package tenant

import (
	"context"

	pkgError "github.com/AzielCF/az-inbox/pkg/error"
)

// ErrTenantRequired is returned when a tenant-scoped operation runs without
// an authenticated tenant on the context.
var ErrTenantRequired = pkgError.AuthError("tenant required")

type ctxKey int

const (
	tenantKey ctxKey = iota
	userKey
	adminKey
)

// WithTenant returns a copy of ctx scoped to tenantID.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// WithUser records the acting user (agent) id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// WithAdmin marks ctx as administrative; tenant scoping is skipped.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminKey, true)
}

// FromContext returns the tenant id on ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tenantKey).(string)
	return id, ok && id != ""
}

// MustFromContext returns the tenant id or ErrTenantRequired.
func MustFromContext(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", ErrTenantRequired
	}
	return id, nil
}

// UserFromContext returns the acting user id on ctx, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey).(string)
	return id, ok && id != ""
}

// IsAdmin reports whether ctx was marked administrative.
func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(adminKey).(bool)
	return v
}
