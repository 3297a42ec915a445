// Command dispatcher runs the outbox dispatcher and the idempotent
// consumer driver that projects settled-payment events onward.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/rabbitmq"
	"github.com/msdcl/payment-ledger-system-sub000/internal/bootstrap"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx)
	if err != nil {
		log.Fatalf("failed to start ledgerflow dispatcher: %v", err)
	}

	dispatcher := app.NewOutboxDispatcher()
	go dispatcher.Run(ctx)

	driver := app.NewConsumerDriver(projectEvent(app.Logger))
	if err := driver.Run(ctx); err != nil {
		app.Logger.Errorf("consumer driver stopped: %v", err)
	}
}

// projectEvent is the projector's handler: it records that a settled
// payment event reached this consumer group. A deployment with an
// actual downstream projection would replace this with that logic; the
// idempotency guarantee the driver provides is unaffected either way.
func projectEvent(logger mlog.Logger) func(ctx context.Context, msg rabbitmq.Message) error {
	return func(ctx context.Context, msg rabbitmq.Message) error {
		logger.Infof("projected event %s (%s) for aggregate %s/%s", msg.EventID, msg.EventType, msg.AggregateType, msg.AggregateID)
		return nil
	}
}
