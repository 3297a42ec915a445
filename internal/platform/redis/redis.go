// Package redis wires the derived-hint cache: the idempotency resolver's
// fast path. Complete cache unavailability must never reduce
// correctness, so callers treat every error from this package as
// "continue to the store fallback", never as fatal.
package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
)

// Connection is a hub which deals with the redis connection.
type Connection struct {
	Addr      string
	Client    *goredis.Client
	Connected bool
	Logger    mlog.Logger
}

// Connect opens the redis client and verifies it with a PING.
func (c *Connection) Connect(ctx context.Context) error {
	c.Logger.Info("connecting to redis...")

	client := goredis.NewClient(&goredis.Options{Addr: c.Addr})

	if err := client.Ping(ctx).Err(); err != nil {
		c.Logger.Warnf("redis ping failed, continuing without cache: %v", err)
		return err
	}

	c.Client = client
	c.Connected = true

	c.Logger.Info("connected to redis")

	return nil
}

// GetClient returns the redis client, connecting lazily. Callers must
// still handle a non-nil error: redis being down is an expected,
// tolerated runtime state, not a startup failure.
func (c *Connection) GetClient(ctx context.Context) (*goredis.Client, error) {
	if c.Client == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.Client, nil
}
