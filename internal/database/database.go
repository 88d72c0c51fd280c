package database

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

//go:embed schema.sql
var schema string

// Connect opens the Postgres pool, retrying with exponential backoff while
// the database comes up.
func Connect(ctx context.Context) (*sqlx.DB, error) {
	dsn := viper.GetString("DB_DSN")

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	var db *sqlx.DB
	err := backoff.Retry(func() error {
		var err error
		db, err = sqlx.ConnectContext(ctx, "pgx", dsn)
		if err != nil {
			log.Warn().Err(err).Msg("db not ready, retrying")
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, 6), ctx))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// Migrate creates the tables the repository uses if they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
