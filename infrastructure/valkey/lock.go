package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	valkeylib "github.com/valkey-io/valkey-go"
)

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Lock is a single-attempt SET NX EX lease. It does not spin: a node that
// loses simply skips its turn.
type Lock struct {
	client *Client
	key    string
	token  string
}

// TryLock acquires name for ttl. ok is false when another holder owns it.
func (c *Client) TryLock(ctx context.Context, name string, ttl time.Duration) (*Lock, bool, error) {
	key := c.Key("lock", name)
	token := uuid.NewString()

	cmd := c.inner.B().Set().Key(key).Value(token).Nx().Ex(ttl).Build()
	if err := c.inner.Do(ctx, cmd).Error(); err != nil {
		if valkeylib.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return &Lock{client: c, key: key, token: token}, true, nil
}

// Release deletes the lease only if it is still ours.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	inner := l.client.inner
	cmd := inner.B().Eval().Script(releaseScript).Numkeys(1).Key(l.key).Arg(l.token).Build()
	if err := inner.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
