package application

import (
	"context"
	"time"

	"github.com/AzielCF/az-inbox/infrastructure/valkey"
	"github.com/sirupsen/logrus"
)

// ValkeyLocker holds a short-lived NX lock for the duration of one batch.
type ValkeyLocker struct {
	client *valkey.Client
	name   string
	ttl    time.Duration
}

func NewValkeyLocker(client *valkey.Client, ttl time.Duration) *ValkeyLocker {
	return &ValkeyLocker{client: client, name: "queue", ttl: ttl}
}

func (l *ValkeyLocker) TryLock(ctx context.Context) (func(context.Context), bool, error) {
	lock, ok, err := l.client.TryLock(ctx, l.name, l.ttl)
	if err != nil || !ok {
		return nil, ok, err
	}
	return func(ctx context.Context) {
		if err := lock.Release(ctx); err != nil {
			logrus.WithError(err).Warn("[QUEUE] Failed to release batch lock")
		}
	}, true, nil
}
