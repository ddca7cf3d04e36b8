// internal/feed/retry.go
package feed

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// RetryingSource wraps a Source with exponential backoff. A fetch that keeps
// failing after maxTries surfaces the last error to the keeper loop, which
// treats it as a degraded oracle rather than a crash.
type RetryingSource struct {
	inner      Source
	logger     *zap.Logger
	maxTries   uint
	retryDelay time.Duration
}

// NewRetryingSource decorates inner. maxTries <= 0 defaults to 3.
func NewRetryingSource(inner Source, maxTries int, retryDelay time.Duration, logger *zap.Logger) *RetryingSource {
	if maxTries <= 0 {
		maxTries = 3
	}
	if retryDelay <= 0 {
		retryDelay = 200 * time.Millisecond
	}
	return &RetryingSource{
		inner:      inner,
		logger:     logger.Named("feed_retry"),
		maxTries:   uint(maxTries),
		retryDelay: retryDelay,
	}
}

// Fetch retries the inner source with exponential backoff.
func (r *RetryingSource) Fetch(ctx context.Context) (Observations, error) {
	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = r.retryDelay
	backoffPolicy.MaxInterval = r.retryDelay * 10

	notify := func(err error, duration time.Duration) {
		r.logger.Debug("Retrying feed fetch after error",
			zap.Error(err), zap.Duration("backoff", duration))
	}

	operation := func() (Observations, error) {
		return r.inner.Fetch(ctx)
	}

	obs, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoffPolicy),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithNotify(notify))
	if err != nil {
		r.logger.Warn("Feed fetch failed after all retries", zap.Error(err))
		return Observations{}, err
	}
	return obs, nil
}
