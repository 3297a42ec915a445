package bootstrap

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/http/in"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/ledgerrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/outboxrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/paymentrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/processedeventrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/rabbitmq"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/redis/idempotency"
	"github.com/msdcl/payment-ledger-system-sub000/internal/consumer"
	"github.com/msdcl/payment-ledger-system-sub000/internal/outboxdispatch"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
	platformpostgres "github.com/msdcl/payment-ledger-system-sub000/internal/platform/postgres"
	platformrabbitmq "github.com/msdcl/payment-ledger-system-sub000/internal/platform/rabbitmq"
	platformredis "github.com/msdcl/payment-ledger-system-sub000/internal/platform/redis"
	"github.com/msdcl/payment-ledger-system-sub000/internal/services/command"
	"github.com/msdcl/payment-ledger-system-sub000/internal/services/query"
)

// App bundles every wired collaborator a process might need to run
// off of. Both cmd/app and cmd/dispatcher build one of these and use
// only the pieces relevant to them.
type App struct {
	Config   *Config
	Logger   mlog.Logger
	Postgres *platformpostgres.Connection
	Redis    *platformredis.Connection
	RabbitMQ *platformrabbitmq.Connection

	Command *command.UseCase
	Query   *query.UseCase

	ProcessedEventRepo processedeventrepo.Repository
	OutboxRepo         outboxrepo.Repository

	Producer rabbitmq.Producer
	Consumer rabbitmq.Consumer
}

// NewApp loads configuration and connects every downstream dependency.
// Redis is allowed to fail to connect (the idempotency cache degrades
// gracefully); Postgres and RabbitMQ failures are fatal.
func NewApp(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := mlog.NewZapLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	pg := &platformpostgres.Connection{
		DSN:            cfg.PostgresDSN(),
		MigrationsPath: cfg.DBMigrationsPath,
		Logger:         logger,
	}
	if err := pg.Connect(); err != nil {
		return nil, err
	}

	rd := &platformredis.Connection{Addr: cfg.RedisAddr, Logger: logger}
	if err := rd.Connect(ctx); err != nil {
		logger.Warnf("starting without idempotency cache: %v", err)
	}

	mq := &platformrabbitmq.Connection{URL: cfg.RabbitMQURL(), Logger: logger}
	if err := mq.Connect(); err != nil {
		return nil, err
	}

	db, err := pg.GetDB()
	if err != nil {
		return nil, err
	}

	paymentRepo := paymentrepo.NewPostgreSQLRepository(db)
	ledgerRepo := ledgerrepo.NewPostgreSQLRepository(db)
	outboxRepo := outboxrepo.NewPostgreSQLRepository(db)
	processedEventRepo := processedeventrepo.NewPostgreSQLRepository(db)

	var cache idempotency.Cache
	if rd.Connected {
		client, err := rd.GetClient(ctx)
		if err == nil {
			cache = idempotency.NewRedisCache(client)
		}
	}

	cmdUseCase := &command.UseCase{
		DB:               db,
		PaymentRepo:      paymentRepo,
		LedgerRepo:       ledgerRepo,
		OutboxRepo:       outboxRepo,
		IdempotencyCache: cache,
	}

	queryUseCase := &query.UseCase{
		PaymentRepo: paymentRepo,
		LedgerRepo:  ledgerRepo,
	}

	return &App{
		Config:             cfg,
		Logger:             logger,
		Postgres:           pg,
		Redis:              rd,
		RabbitMQ:           mq,
		Command:            cmdUseCase,
		Query:              queryUseCase,
		ProcessedEventRepo: processedEventRepo,
		OutboxRepo:         outboxRepo,
		Producer:           rabbitmq.NewAMQPProducer(mq),
		Consumer:           rabbitmq.NewAMQPConsumer(mq),
	}, nil
}

// NewHTTPServer builds the fiber app exposing the admission API.
func (a *App) NewHTTPServer() *fiber.App {
	app := fiber.New()

	app.Use(in.WithCorrelationID())
	app.Use(in.WithLogger(a.Logger))

	in.RegisterRoutes(app, &in.PaymentHandler{Command: a.Command, Query: a.Query})

	return app
}

// NewOutboxDispatcher builds the background outbox-draining loop.
func (a *App) NewOutboxDispatcher() *outboxdispatch.Dispatcher {
	return &outboxdispatch.Dispatcher{
		DB:           a.Postgres.DB,
		OutboxRepo:   a.OutboxRepo,
		Producer:     a.Producer,
		Exchange:     a.Config.RabbitMQExchange,
		PollInterval: pollInterval(a.Config),
		BatchSize:    a.Config.OutboxBatchSize,
		Logger:       a.Logger,
	}
}

func pollInterval(cfg *Config) time.Duration {
	if cfg.OutboxPollIntervalSeconds <= 0 {
		return outboxdispatch.DefaultPollInterval
	}

	return time.Duration(cfg.OutboxPollIntervalSeconds) * time.Second
}

// NewConsumerDriver builds the idempotent consumer framework driver
// for handler.
func (a *App) NewConsumerDriver(handler consumer.Handler) *consumer.Driver {
	return &consumer.Driver{
		DB:                 a.Postgres.DB,
		ProcessedEventRepo: a.ProcessedEventRepo,
		Consumer:           a.Consumer,
		ConsumerGroup:      a.Config.ConsumerGroup,
		Queue:              a.Config.RabbitMQQueue,
		Handler:            handler,
		Logger:             a.Logger,
	}
}
