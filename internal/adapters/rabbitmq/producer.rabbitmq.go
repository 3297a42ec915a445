// Package rabbitmq is the outbound message-log adapter: a producer the
// outbox dispatcher delivers through, and a consumer the idempotent
// consumer framework reads from.
package rabbitmq

import (
	"context"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/rabbitmq"
)

// Message is a single durable event ready to cross the wire. Its
// identity fields travel as AMQP headers so a consumer can dedup
// against the processed-event table without unmarshalling Body first.
type Message struct {
	EventID       uuid.UUID
	EventType     string
	AggregateType string
	AggregateID   string
	Body          []byte
}

const (
	headerEventID       = "x-event-id"
	headerEventType     = "x-event-type"
	headerAggregateType = "x-aggregate-type"
	headerAggregateID   = "x-aggregate-id"
	headerCorrelationID = "x-correlation-id"
)

// Producer publishes a single outbox event onto the exchange, keyed by
// aggregate id so everything about one aggregate lands on the same
// queue and is delivered in order.
type Producer interface {
	Publish(ctx context.Context, exchange string, msg Message) error
}

// AMQPProducer is the amqp091-go-backed Producer.
type AMQPProducer struct {
	Conn *rabbitmq.Connection
}

// NewAMQPProducer returns a new Producer over conn.
func NewAMQPProducer(conn *rabbitmq.Connection) *AMQPProducer {
	return &AMQPProducer{Conn: conn}
}

// Publish sends msg to exchange, routed by its aggregate id so all
// events for one aggregate stay ordered on a single queue, and blocks
// for the broker's publisher-confirm before returning. The dispatcher
// treats any error here, including a negative confirm, as a delivery
// failure to be retried.
func (p *AMQPProducer) Publish(ctx context.Context, exchange string, msg Message) error {
	logger := mlog.FromContext(ctx)
	tracer := mlog.TracerFromContext(ctx)

	_, span := tracer.Start(ctx, "rabbitmq.producer.publish")
	defer span.End()

	ch, err := p.Conn.GetChannel()
	if err != nil {
		return err
	}

	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	err = ch.Publish(exchange, msg.AggregateID, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         msg.EventType,
		Headers: amqp.Table{
			headerEventID:       msg.EventID.String(),
			headerEventType:     msg.EventType,
			headerAggregateType: msg.AggregateType,
			headerAggregateID:   msg.AggregateID,
			headerCorrelationID: mlog.CorrelationIDFromContext(ctx),
		},
		Body: msg.Body,
	})
	if err != nil {
		logger.Errorf("failed to publish to exchange %s: %v", exchange, err)
		return err
	}

	select {
	case confirm := <-confirms:
		if !confirm.Ack {
			return errPublishNotAcked
		}

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
