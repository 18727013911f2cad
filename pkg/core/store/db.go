package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	mu   sync.Mutex
	pool *pgxpool.Pool
)

// InitDB opens the shared connection pool against the given URL. The
// engine never requires storage; callers that want persistence call
// this once at startup. A second call while the pool is open is a
// no-op, and a failed attempt leaves the pool unset so startup can
// retry.
func InitDB(ctx context.Context, databaseURL string) error {
	mu.Lock()
	defer mu.Unlock()
	if pool != nil {
		return nil
	}
	if databaseURL == "" {
		return fmt.Errorf("database URL is empty")
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("could not parse database URL: %w", err)
	}

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("could not open database pool: %w", err)
	}
	pool = p
	return nil
}

// GetPool returns the shared pool, or nil when storage was never
// initialized. Repositories treat a nil pool as "persistence disabled".
func GetPool() *pgxpool.Pool {
	mu.Lock()
	defer mu.Unlock()
	return pool
}

// Close shuts the pool down and clears it so InitDB may run again.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if pool != nil {
		pool.Close()
		pool = nil
	}
}
