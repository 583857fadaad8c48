package database

import (
	"context"

	"github.com/AzielCF/az-inbox/core/tenant"
	"gorm.io/gorm"
)

type txKey struct{}

// Accessor hands out query handles bound to the caller's capabilities.
// Tenant-owned tables go through Scoped, which filters every statement by the
// tenant on the context; process-wide tables (inbox, queue, webhook log) and
// administrative lookups go through Admin.
type Accessor struct {
	db *gorm.DB
}

func NewAccessor(db *gorm.DB) *Accessor {
	return &Accessor{db: db}
}

// Scoped returns a handle filtered by tenant_id. Administrative contexts are
// not filtered. Call it once per statement: gorm chains are not reusable.
func (a *Accessor) Scoped(ctx context.Context) (*gorm.DB, error) {
	db := a.conn(ctx)
	if tenant.IsAdmin(ctx) {
		if id, ok := tenant.FromContext(ctx); ok {
			return db.Scopes(byTenant(id)), nil
		}
		return db, nil
	}
	id, err := tenant.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return db.Scopes(byTenant(id)), nil
}

// Admin returns an unfiltered handle.
func (a *Accessor) Admin(ctx context.Context) *gorm.DB {
	return a.conn(ctx)
}

// TenantID returns the tenant that new rows must be stamped with.
func (a *Accessor) TenantID(ctx context.Context) (string, error) {
	return tenant.MustFromContext(ctx)
}

// Transaction runs fn inside a database transaction. Handles obtained from
// the context passed to fn join that transaction; nested calls reuse it.
func (a *Accessor) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (a *Accessor) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return a.db.WithContext(ctx)
}

func byTenant(id string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", id)
	}
}
