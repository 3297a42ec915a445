// Package bootstrap wires every adapter and use case into a runnable
// service: one Config struct loaded from the environment, one function
// that builds every collaborator in dependency order.
package bootstrap

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ApplicationName identifies this service in logs and telemetry.
const ApplicationName = "ledgerflow"

// Config is the complete set of environment-driven settings for both
// the admission API and the outbox dispatcher/consumer processes.
type Config struct {
	EnvName  string `env:"ENV_NAME" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBHost           string `env:"DB_HOST" envDefault:"localhost"`
	DBUser           string `env:"DB_USER" envDefault:"postgres"`
	DBPassword       string `env:"DB_PASSWORD"`
	DBName           string `env:"DB_NAME" envDefault:"ledgerflow"`
	DBPort           string `env:"DB_PORT" envDefault:"5432"`
	DBMigrationsPath string `env:"DB_MIGRATIONS_PATH" envDefault:"migrations"`
	DBMaxOpenConns   int    `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBMaxIdleConns   int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	RabbitMQHost     string `env:"RABBITMQ_HOST" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUser     string `env:"RABBITMQ_USER" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQExchange string `env:"RABBITMQ_EXCHANGE" envDefault:"ledgerflow.events"`
	RabbitMQQueue    string `env:"RABBITMQ_QUEUE" envDefault:"ledgerflow.projector"`

	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	OutboxPollIntervalSeconds int `env:"OUTBOX_POLL_INTERVAL_SECONDS" envDefault:"1"`
	OutboxBatchSize           int `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`

	ConsumerGroup string `env:"CONSUMER_GROUP" envDefault:"ledger-projector"`
}

// LoadConfig reads Config from the environment, applying the
// envDefault tags for anything unset.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// PostgresDSN builds the libpq-style connection string Connect expects.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// RabbitMQURL builds the amqp091-go connection URL.
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.RabbitMQUser, c.RabbitMQPassword, c.RabbitMQHost, c.RabbitMQPort)
}
