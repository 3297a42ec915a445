// Package rabbitmq wires the durable message log: a single AMQP
// connection and channel shared by the outbox dispatcher's producer and
// the consumer framework.
package rabbitmq

import (
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
)

// Connection is a hub which deals with the rabbitmq connection. It
// watches its own channel for an unsolicited close (broker restart,
// network blip, heartbeat timeout) and marks itself disconnected so the
// next GetChannel call redials instead of handing back a dead channel
// forever.
type Connection struct {
	URL    string
	Logger mlog.Logger

	mu        sync.Mutex
	conn      *amqp.Connection
	Channel   *amqp.Channel
	Connected bool
}

// Connect dials rabbitmq and opens a channel with publisher confirms
// enabled, so the dispatcher can wait for broker acknowledgment.
func (c *Connection) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connectLocked()
}

func (c *Connection) connectLocked() error {
	c.Logger.Info("connecting to rabbitmq...")

	conn, err := amqp.Dial(c.URL)
	if err != nil {
		c.Logger.Errorf("failed to connect to rabbitmq: %v", err)
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		c.Logger.Errorf("failed to open rabbitmq channel: %v", err)
		_ = conn.Close()

		return err
	}

	if err := ch.Confirm(false); err != nil {
		c.Logger.Errorf("failed to put channel into confirm mode: %v", err)
		_ = conn.Close()

		return err
	}

	c.conn = conn
	c.Channel = ch
	c.Connected = true

	closed := make(chan *amqp.Error, 1)
	ch.NotifyClose(closed)

	go c.watchForClose(closed)

	c.Logger.Info("connected to rabbitmq")

	return nil
}

// watchForClose clears Connected the moment the broker or network tears
// the channel down from underneath us, so the next GetChannel call
// reconnects instead of reusing a channel every subsequent Publish or
// Consume call on it would otherwise fail against forever.
func (c *Connection) watchForClose(closed <-chan *amqp.Error) {
	amqpErr, ok := <-closed
	if !ok {
		return
	}

	c.Logger.Warnf("rabbitmq channel closed: %v", amqpErr)

	c.mu.Lock()
	c.Connected = false
	c.mu.Unlock()
}

// GetChannel returns the open channel, connecting or reconnecting
// lazily if necessary.
func (c *Connection) GetChannel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Connected {
		if err := c.connectLocked(); err != nil {
			return nil, err
		}
	}

	return c.Channel, nil
}

// HealthCheck reports whether the connection is currently usable.
func (c *Connection) HealthCheck() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.Connected && c.conn != nil && !c.conn.IsClosed()
}

// Close tears down the channel and connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Channel != nil {
		_ = c.Channel.Close()
	}

	c.Connected = false

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}
