// Package storage persists tenants and the appointment ledger in Postgres.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout      time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"8"`
}

func Open(cfg Config) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithTimeout(cfg.Timeout),
	))
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	return bun.NewDB(sqldb, pgdialect.New())
}

// CreateSchema creates the tables when they do not exist yet. The deployment
// is small enough that versioned migrations would be overhead.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*tenantRow)(nil),
		(*appointmentRow)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
