package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to dsn, retrying the ping while the database starts up.
// The returned pool is used only for readiness checks.
func Open(ctx context.Context, dsn string, attempts int, logger *slog.Logger) (*sql.DB, error) {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	for i := 1; i <= attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return db, nil
		}
		if i == attempts {
			break
		}
		logger.Info("waiting for database", "attempt", i, "of", attempts, "error", err)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(i) * time.Second):
		}
	}
	db.Close()
	return nil, fmt.Errorf("ping database after %d attempts: %w", attempts, err)
}
