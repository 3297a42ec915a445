// Package postgres wires the single relational store of record: a
// *sql.DB opened against pgx's stdlib driver, with schema migrations
// applied on Connect. Every repository shares one Connection.
package postgres

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
)

// Connection is a hub which deals with the postgres connection and its
// schema migrations.
type Connection struct {
	DSN            string
	MigrationsPath string
	DB             *sql.DB
	Connected      bool
	Logger         mlog.Logger
}

// Connect opens the database and applies pending migrations. It is
// idempotent: calling it twice is a no-op once Connected is true.
func (c *Connection) Connect() error {
	if c.Connected {
		return nil
	}

	c.Logger.Info("connecting to postgres...")

	db, err := sql.Open("pgx", c.DSN)
	if err != nil {
		c.Logger.Errorf("failed to open postgres connection: %v", err)
		return err
	}

	if err := db.Ping(); err != nil {
		c.Logger.Errorf("failed to ping postgres: %v", err)
		return err
	}

	if c.MigrationsPath != "" {
		if err := c.migrate(db); err != nil {
			return err
		}
	}

	c.DB = db
	c.Connected = true

	c.Logger.Info("connected to postgres")

	return nil
}

func (c *Connection) migrate(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		c.Logger.Errorf("failed to build migration driver: %v", err)
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", c.MigrationsPath), "postgres", driver)
	if err != nil {
		c.Logger.Errorf("failed to load migrations: %v", err)
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		c.Logger.Errorf("failed to run migrations: %v", err)
		return err
	}

	return nil
}

// GetDB returns the pooled connection, connecting lazily if necessary.
func (c *Connection) GetDB() (*sql.DB, error) {
	if c.DB == nil {
		if err := c.Connect(); err != nil {
			return nil, err
		}
	}

	return c.DB, nil
}
