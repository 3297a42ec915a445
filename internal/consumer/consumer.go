// Package consumer is the idempotent consumer framework: it wraps a
// handler with the processed-event dedup check so the same
// (event_id, consumer_group) pair is never handled twice, and makes a
// handler failure terminal rather than grounds for endless redelivery.
package consumer

import (
	"context"
	"database/sql"
	"time"

	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/processedeventrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/rabbitmq"
	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/outbox"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/dbtx"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
)

// Handler processes one event's payload. A returned error marks the
// event FAILED in the dedup table; it is never retried by this
// consumer group again, only surfaced for operator attention.
type Handler func(ctx context.Context, msg rabbitmq.Message) error

// Driver pulls deliveries off one queue for one consumer group and
// runs them through the idempotency wrapper before acking.
type Driver struct {
	DB                 *sql.DB
	ProcessedEventRepo processedeventrepo.Repository
	Consumer           rabbitmq.Consumer
	ConsumerGroup      string
	Queue              string
	Handler            Handler
	Logger             mlog.Logger
}

// Run streams deliveries from Queue until ctx is canceled, processing
// each one through the idempotent wrapper before acking it. The
// underlying AMQP channel can close out from under a long-lived
// Consume call (broker restart, heartbeat timeout); when that drains
// the deliveries channel, Run resubscribes rather than returning, so a
// broker recovery lets the consumer pick back up instead of leaving
// this consumer group silently stopped forever.
func (d *Driver) Run(ctx context.Context) error {
	for {
		deliveries, err := d.Consumer.Consume(ctx, d.Queue)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			d.Logger.Errorf("consumer group %s failed to subscribe to %s, retrying: %v", d.ConsumerGroup, d.Queue, err)
			d.sleep(ctx, resubscribeBackoff)

			continue
		}

		for delivery := range deliveries {
			d.handleOne(ctx, delivery)
		}

		if ctx.Err() != nil {
			return nil
		}

		d.Logger.Warnf("consumer group %s lost its subscription to %s, resubscribing", d.ConsumerGroup, d.Queue)
		d.sleep(ctx, resubscribeBackoff)
	}
}

// resubscribeBackoff bounds how fast Run retries a lost subscription,
// so a broker that is still down doesn't get hammered with reconnects.
const resubscribeBackoff = 2 * time.Second

func (d *Driver) sleep(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (d *Driver) handleOne(ctx context.Context, delivery rabbitmq.Delivery) {
	ctx = mlog.ContextWithCorrelationID(ctx, delivery.CorrelationID)

	processed, err := d.process(ctx, delivery.Message)
	if err != nil {
		d.Logger.Errorf("consumer group %s failed to process event %s, nacking for redelivery: %v", d.ConsumerGroup, delivery.EventID, err)

		if nackErr := delivery.Nack(true); nackErr != nil {
			d.Logger.Errorf("failed to nack delivery %s: %v", delivery.EventID, nackErr)
		}

		return
	}

	if !processed {
		d.Logger.Infof("event %s already processed by consumer group %s, skipping", delivery.EventID, d.ConsumerGroup)
	}

	if ackErr := delivery.Ack(); ackErr != nil {
		d.Logger.Errorf("failed to ack delivery %s: %v", delivery.EventID, ackErr)
	}
}

// process is the core idempotency wrapper. It reports (false, nil) if
// this attempt lost the claim for (event_id, consumer_group) — the
// caller must still ack, since the row belongs to whichever attempt
// won it, and that attempt is responsible for the outcome. The row is
// claimed with a PROCESSING placeholder BEFORE the handler runs and
// completed with its final result AFTER, so two genuinely concurrent
// deliveries of the same pair can never both run the handler: the
// second Claim call affects zero rows and skips straight to acking. A
// handler error is captured as a FAILED row and swallowed (returned as
// nil) so the caller acks rather than redelivers: a handler that fails
// deterministically would otherwise poison the queue forever.
func (d *Driver) process(ctx context.Context, msg rabbitmq.Message) (bool, error) {
	var processed bool

	err := dbtx.RunInTransaction(ctx, d.DB, func(ctx context.Context) error {
		claimed, err := d.ProcessedEventRepo.Claim(ctx, msg.EventID, msg.EventType, msg.AggregateType, msg.AggregateID, d.ConsumerGroup)
		if err != nil {
			return err
		}

		if !claimed {
			return nil
		}

		processed = true

		result, errMsg := d.runHandler(ctx, msg)

		return d.ProcessedEventRepo.Complete(ctx, outbox.ProcessedEvent{
			EventID:       msg.EventID,
			EventType:     msg.EventType,
			AggregateType: msg.AggregateType,
			AggregateID:   msg.AggregateID,
			ConsumerGroup: d.ConsumerGroup,
			ProcessedAt:   time.Now(),
			Result:        result,
			ErrorMessage:  errMsg,
		})
	})

	return processed, err
}

func (d *Driver) runHandler(ctx context.Context, msg rabbitmq.Message) (outbox.ProcessResult, *string) {
	if err := d.Handler(ctx, msg); err != nil {
		msg := err.Error()
		return outbox.ResultFailed, &msg
	}

	return outbox.ResultSuccess, nil
}
