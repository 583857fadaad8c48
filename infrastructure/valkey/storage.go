package valkey

import (
	"context"
	"fmt"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"
)

const storageTimeout = 2 * time.Second

// Storage adapts the client to fiber.Storage so the request limiter shares
// its counters across nodes.
type Storage struct {
	client *Client
	prefix string
}

func NewStorage(client *Client, namespace string) *Storage {
	return &Storage{client: client, prefix: client.Key(namespace) + ":"}
}

func (s *Storage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	inner := s.client.inner
	data, err := inner.Do(ctx, inner.B().Get().Key(s.prefix+key).Build()).AsBytes()
	if err != nil {
		if valkeylib.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	inner := s.client.inner
	var err error
	if exp > 0 {
		err = inner.Do(ctx, inner.B().Set().Key(s.prefix+key).Value(valkeylib.BinaryString(val)).Ex(exp).Build()).Error()
	} else {
		err = inner.Do(ctx, inner.B().Set().Key(s.prefix+key).Value(valkeylib.BinaryString(val)).Build()).Error()
	}
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Delete(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	inner := s.client.inner
	return inner.Do(ctx, inner.B().Del().Key(s.prefix+key).Build()).Error()
}

// Reset removes every key under the storage namespace.
func (s *Storage) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*storageTimeout)
	defer cancel()

	inner := s.client.inner
	var cursor uint64
	for {
		entry, err := inner.Do(ctx, inner.B().Scan().Cursor(cursor).Match(s.prefix+"*").Count(100).Build()).AsScanEntry()
		if err != nil {
			return fmt.Errorf("failed to scan limiter keys: %w", err)
		}
		if len(entry.Elements) > 0 {
			if err := inner.Do(ctx, inner.B().Del().Key(entry.Elements...).Build()).Error(); err != nil {
				return fmt.Errorf("failed to delete limiter keys: %w", err)
			}
		}
		cursor = entry.Cursor
		if cursor == 0 {
			return nil
		}
	}
}

// Close is a no-op; the shared client is closed by its owner.
func (s *Storage) Close() error {
	return nil
}
