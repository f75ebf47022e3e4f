package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/Rauan228/HackNU2/internal/logger"
	"go.uber.org/zap"
)

// sleep waits for d or until ctx is done. Tests replace it.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff returns the wait after the given zero-based failed attempt: 2^attempt seconds.
func Backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// RetryingGenerator retries a Generator with exponential backoff and bounds each call with a timeout.
type RetryingGenerator struct {
	next        Generator
	maxAttempts int
	timeout     time.Duration
	log         *zap.Logger
}

// WithRetry wraps next. Zero values fall back to DefaultMaxAttempts and DefaultTimeout.
func WithRetry(next Generator, maxAttempts int, timeout time.Duration, log *zap.Logger) *RetryingGenerator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RetryingGenerator{next: next, maxAttempts: maxAttempts, timeout: timeout, log: logger.OrNop(log)}
}

// Generate calls the wrapped generator until it succeeds or attempts run out.
// Exhaustion is reported as ErrGenerationUnavailable wrapping the last error.
func (r *RetryingGenerator) Generate(ctx context.Context, req Request) (string, error) {
	log := logger.WithFields(r.log, logger.CommonFields(string(r.next.Provider()), r.next.GetModel(req.Tier))...)

	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		text, err := r.call(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		log.Warn("generation attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", r.maxAttempts),
			zap.Error(err),
		)

		if attempt == r.maxAttempts-1 {
			break
		}
		if err := sleep(ctx, Backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}
	return "", fmt.Errorf("%w: %w", ErrGenerationUnavailable, lastErr)
}

func (r *RetryingGenerator) call(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.next.Generate(ctx, req)
}

// Provider returns the wrapped provider.
func (r *RetryingGenerator) Provider() Provider {
	return r.next.Provider()
}

// GetModel returns the wrapped generator's model for tier.
func (r *RetryingGenerator) GetModel(tier ModelTier) string {
	return r.next.GetModel(tier)
}

// Close closes the wrapped generator.
func (r *RetryingGenerator) Close() error {
	return r.next.Close()
}
