package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// waitFor retries ping with exponential backoff until it succeeds, ctx is
// cancelled or maxWait elapses. Only used at startup.
func waitFor(ctx context.Context, name string, maxWait time.Duration, logger *zap.Logger, ping func(context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = maxWait

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := ping(pingCtx); err != nil {
			logger.Warn("dependency not ready", zap.String("dependency", name), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return fmt.Errorf("%s not reachable after %d attempts: %w", name, attempt, err)
	}
	logger.Info("dependency ready", zap.String("dependency", name), zap.Int("attempts", attempt))
	return nil
}
