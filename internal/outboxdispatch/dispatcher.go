// Package outboxdispatch runs the background loop that drains the
// transactional outbox: it leases a batch of pending rows, delivers
// each to the message log, and marks the outcome in a transaction
// separate from the delivery attempt so broker latency never holds a
// store transaction open.
package outboxdispatch

import (
	"context"
	"database/sql"
	"time"

	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/outboxrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/rabbitmq"
	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/outbox"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/dbtx"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
)

const (
	// DefaultPollInterval is how often the dispatcher polls the outbox
	// for new work.
	DefaultPollInterval = 1 * time.Second
	// DefaultBatchSize bounds how many rows one lease/deliver cycle takes
	// on, per §4.5.
	DefaultBatchSize = 100
)

// Dispatcher drains the outbox onto exchange.
type Dispatcher struct {
	DB           *sql.DB
	OutboxRepo   outboxrepo.Repository
	Producer     rabbitmq.Producer
	Exchange     string
	PollInterval time.Duration
	BatchSize    int
	Logger       mlog.Logger
}

// Run polls until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drainOnce(ctx)
		}
	}
}

func (d *Dispatcher) drainOnce(ctx context.Context) {
	batchSize := d.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var batch []outbox.Event

	err := dbtx.RunInTransaction(ctx, d.DB, func(ctx context.Context) error {
		var err error
		batch, err = d.OutboxRepo.LeaseBatch(ctx, batchSize)
		return err
	})
	if err != nil {
		d.Logger.Errorf("failed to lease outbox batch: %v", err)
		return
	}

	// Events are leased oldest-first, ordered by created_at. Once
	// an aggregate's delivery fails, every later event in this batch for
	// that same aggregate_id must wait for the next poll cycle rather
	// than risk delivering out of order: e.g. it must never let E2
	// publish while E1, its same-aggregate predecessor, is still
	// unpublished after a failed attempt.
	blocked := make(map[string]bool, len(batch))

	for _, event := range batch {
		if blocked[event.AggregateID] {
			d.Logger.Infof("skipping outbox event %s: aggregate %s already failed earlier in this batch", event.ID, event.AggregateID)
			continue
		}

		if !d.deliver(ctx, event) {
			blocked[event.AggregateID] = true
		}
	}
}

// deliver attempts to publish event and reports whether delivery
// succeeded (including the already-dead-lettered no-op case, which is
// not a failure the caller needs to hold up subsequent events for).
func (d *Dispatcher) deliver(ctx context.Context, event outbox.Event) bool {
	if !event.IsPending() {
		d.Logger.Warnf("outbox event %s dead-lettered after %d retries, skipping", event.ID, event.RetryCount)
		return true
	}

	err := d.Producer.Publish(ctx, d.Exchange, rabbitmq.Message{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Body:          event.Payload,
	})
	if err != nil {
		d.Logger.Warnf("failed to deliver outbox event %s: %v", event.ID, err)

		if markErr := d.OutboxRepo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
			d.Logger.Errorf("failed to record outbox delivery failure for %s: %v", event.ID, markErr)
		}

		return false
	}

	if err := d.OutboxRepo.MarkPublished(ctx, event.ID); err != nil {
		d.Logger.Errorf("failed to mark outbox event %s published: %v", event.ID, err)
	}

	return true
}
