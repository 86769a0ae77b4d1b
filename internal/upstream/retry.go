package upstream

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds the backoff wrapper.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	// Zero disables retrying entirely.
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// RetrySource wraps a Source with bounded exponential backoff. The core
// fetch contract is unchanged: only retryable failure kinds are retried,
// and the last classified failure is returned verbatim.
type RetrySource struct {
	source Source
	cfg    RetryConfig
	logger *zap.Logger
}

// NewRetrySource builds the wrapper. With MaxRetries == 0 it degrades to
// a pass-through.
func NewRetrySource(source Source, cfg RetryConfig, logger *zap.Logger) *RetrySource {
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = 250 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrySource{source: source, cfg: cfg, logger: logger}
}

// Fetch attempts the wrapped fetch up to 1+MaxRetries times, doubling the
// backoff between attempts and capping it at BackoffMax.
func (r *RetrySource) Fetch(ctx context.Context) (Image, error) {
	backoff := r.cfg.BackoffInitial
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			r.logger.Warn("retrying upstream fetch",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return Image{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > r.cfg.BackoffMax {
				backoff = r.cfg.BackoffMax
			}
		}

		img, err := r.source.Fetch(ctx)
		if err == nil {
			return img, nil
		}
		lastErr = err

		var failure *Failure
		if !errors.As(err, &failure) || !failure.Retryable() {
			return Image{}, err
		}
	}
	return Image{}, lastErr
}
