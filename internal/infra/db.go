// README: Postgres connection pool initialization using pgxpool.
package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// NewDB opens a pool and waits until the database answers a ping or
// connectTimeout elapses.
func NewDB(ctx context.Context, dsn string, connectTimeout time.Duration, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	err = waitFor(ctx, "postgres", connectTimeout, logger, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
