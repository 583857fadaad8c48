package valkey

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AzielCF/az-inbox/core/config"
	valkeylib "github.com/valkey-io/valkey-go"
)

const connectTimeout = 5 * time.Second

// Client shares state between nodes: the queue poller lock, the limiter
// counters and the campaign progress fan-out all go through it.
type Client struct {
	inner     valkeylib.Client
	keyPrefix string
}

// NewClient connects and pings once. Callers own Close.
func NewClient(cfg config.ValkeyConfig) (*Client, error) {
	inner, err := valkeylib.NewClient(valkeylib.ClientOption{
		InitAddress: []string{cfg.Address},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	c := &Client{inner: inner, keyPrefix: normalizePrefix(cfg.KeyPrefix)}
	if err := c.Ping(ctx); err != nil {
		inner.Close()
		return nil, fmt.Errorf("failed to ping valkey at %s: %w", cfg.Address, err)
	}
	return c, nil
}

func normalizePrefix(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		return prefix + ":"
	}
	return prefix
}

func (c *Client) Close() {
	if c.inner != nil {
		c.inner.Close()
	}
}

// Key joins parts under the configured prefix.
// Example: Key("lock", "queue") -> "azinbox:lock:queue"
func (c *Client) Key(parts ...string) string {
	if len(parts) == 0 {
		return strings.TrimSuffix(c.keyPrefix, ":")
	}
	return c.keyPrefix + strings.Join(parts, ":")
}

func (c *Client) Ping(ctx context.Context) error {
	return c.inner.Do(ctx, c.inner.B().Ping().Build()).Error()
}

// Publish sends payload on the prefixed channel.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	cmd := c.inner.B().Publish().Channel(c.Key(channel)).Message(string(payload)).Build()
	return c.inner.Do(ctx, cmd).Error()
}

// Subscribe blocks, calling fn for every message on the prefixed channel,
// until ctx is cancelled or the connection fails.
func (c *Client) Subscribe(ctx context.Context, channel string, fn func(payload []byte)) error {
	cmd := c.inner.B().Subscribe().Channel(c.Key(channel)).Build()
	return c.inner.Receive(ctx, cmd, func(m valkeylib.PubSubMessage) {
		fn([]byte(m.Message))
	})
}
