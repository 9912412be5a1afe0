package retry

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// ErrMaxRetriesExceeded is returned by ConnectWithRetry when every allowed
// attempt failed. It is terminal for the calling watcher only.
var ErrMaxRetriesExceeded = errors.New("max reconnection attempts exceeded")

// ConnectWithRetry attempts connect up to cfg.MaxRetries times, waiting
// the capped exponential backoff between failures. Cancellation is checked
// before every attempt and raced against every backoff wait; a cancelled
// context returns ctx.Err() rather than ErrMaxRetriesExceeded.
//
// The connect operation must be idempotent: it is invoked once per attempt
// and its result is only used on success.
func ConnectWithRetry[T any](ctx context.Context, logger log.Logger, cfg Config, connect func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			logger.Info("Reconnection cancelled")
			return zero, err
		}

		handle, err := connect(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("Reconnected successfully", "attempts", attempt+1)
			}
			return handle, nil
		}

		attempt++
		if attempt >= cfg.MaxRetries {
			logger.Error("Max reconnection attempts exceeded", "attempts", attempt, "err", err)
			return zero, ErrMaxRetriesExceeded
		}

		backoff := cfg.BackoffForAttempt(attempt)
		logger.Warn("Connection failed, retrying",
			"attempt", attempt, "max_retries", cfg.MaxRetries, "backoff", backoff, "err", err)

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			logger.Info("Reconnection cancelled during backoff")
			return zero, ctx.Err()
		}
	}
}
