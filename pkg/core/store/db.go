// Package store persists finished reports to Postgres. The database is
// optional; when DATABASE_URL is unset the rest of the system runs
// without history or download-by-id support.
package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

// InitDB initializes the connection pool from DATABASE_URL and creates
// the reports table if it does not exist yet.
func InitDB(ctx context.Context) error {
	var err error
	once.Do(func() {
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			err = fmt.Errorf("DATABASE_URL environment variable not set")
			return
		}

		config, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return
		}
		err = ensureSchema(ctx)
	})
	return err
}

func ensureSchema(ctx context.Context) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS research_reports (
			id UUID PRIMARY KEY,
			ticker TEXT NOT NULL,
			company TEXT NOT NULL,
			report_json JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS research_reports_ticker_idx
			ON research_reports (ticker, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// GetPool returns the connection pool, nil when InitDB was never called
// or failed.
func GetPool() *pgxpool.Pool {
	return pool
}

// Available reports whether persistence is usable.
func Available() bool {
	return pool != nil
}

// Close closes the connection pool.
func Close() {
	if pool != nil {
		pool.Close()
		log.Debug().Msg("database pool closed")
	}
}
