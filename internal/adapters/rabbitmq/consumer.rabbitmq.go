package rabbitmq

import (
	"context"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/rabbitmq"
)

// Delivery is a single message handed to the consumer framework,
// carrying the identity headers Publish attached plus the means to
// ack or nack it once handling finishes.
type Delivery struct {
	Message
	CorrelationID string
	ack           func() error
	nack          func(requeue bool) error
}

// Ack acknowledges the delivery, removing it from the broker's queue.
func (d Delivery) Ack() error { return d.ack() }

// Nack negatively acknowledges the delivery. requeue controls whether
// the broker redelivers it or drops it.
func (d Delivery) Nack(requeue bool) error { return d.nack(requeue) }

// Consumer streams deliveries off a single queue.
type Consumer interface {
	Consume(ctx context.Context, queue string) (<-chan Delivery, error)
}

// AMQPConsumer is the amqp091-go-backed Consumer.
type AMQPConsumer struct {
	Conn *rabbitmq.Connection
}

// NewAMQPConsumer returns a new Consumer over conn.
func NewAMQPConsumer(conn *rabbitmq.Connection) *AMQPConsumer {
	return &AMQPConsumer{Conn: conn}
}

// Consume opens a manual-ack delivery stream on queue. The returned
// channel closes when ctx is done or the underlying channel is torn
// down by the broker.
func (c *AMQPConsumer) Consume(ctx context.Context, queue string) (<-chan Delivery, error) {
	logger := mlog.FromContext(ctx)

	ch, err := c.Conn.GetChannel()
	if err != nil {
		return nil, err
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		logger.Errorf("failed to register consumer on queue %s: %v", queue, err)
		return nil, err
	}

	out := make(chan Delivery)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				out <- toDelivery(d)
			}
		}
	}()

	return out, nil
}

func toDelivery(d amqp.Delivery) Delivery {
	return Delivery{
		Message: Message{
			EventID:       parseUUIDHeader(d.Headers, headerEventID),
			EventType:     stringHeader(d.Headers, headerEventType),
			AggregateType: stringHeader(d.Headers, headerAggregateType),
			AggregateID:   stringHeader(d.Headers, headerAggregateID),
			Body:          d.Body,
		},
		CorrelationID: stringHeader(d.Headers, headerCorrelationID),
		ack:           func() error { return d.Ack(false) },
		nack:          func(requeue bool) error { return d.Nack(false, requeue) },
	}
}

func stringHeader(headers amqp.Table, key string) string {
	v, _ := headers[key].(string)
	return v
}

func parseUUIDHeader(headers amqp.Table, key string) uuid.UUID {
	id, _ := uuid.Parse(stringHeader(headers, key))
	return id
}
