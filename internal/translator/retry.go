package translator

import (
	"context"
	"fmt"
	"time"

	"github.com/MimeLyc/sentence-sub-translator/pkg/log"
)

// RetryConfig holds retry parameters for exponential backoff.
//
// Invalid values are normalized:
//   - MaxRetries < 0 becomes 0 (single attempt)
//   - BaseDelay <= 0 becomes 1ms
//   - MaxDelay <= 0 becomes BaseDelay
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (c *RetryConfig) normalize() {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.BaseDelay
	}
}

type retrying struct {
	next Translator
	cfg  RetryConfig
}

// WithRetry retries transient failures of next with exponential backoff.
// Permanent and quota failures are returned on the first attempt.
func WithRetry(next Translator, cfg RetryConfig) Translator {
	cfg.normalize()
	return &retrying{next: next, cfg: cfg}
}

func (r *retrying) Translate(ctx context.Context, text string, targetLang string) (string, error) {
	return RetryWithBackoff(ctx, r.cfg, func() (string, error) {
		return r.next.Translate(ctx, text, targetLang)
	}, IsRetryable)
}

// RetryWithBackoff executes fn, retrying while shouldRetry accepts the error.
func RetryWithBackoff[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	cfg.normalize()

	var zero T
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Warn("Retrying translation (attempt %d/%d) after %v: %v", attempt, cfg.MaxRetries, delay, lastErr)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
			delay = min(delay*2, cfg.MaxDelay)
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !shouldRetry(lastErr) {
			return zero, lastErr
		}
	}

	return zero, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}
