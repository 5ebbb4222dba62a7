package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	MaxTotalTimeout time.Duration
}

// DefaultConfig returns a default retry configuration with 1 minute max timeout
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     10,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 60 * time.Second, // 1 minute max
	}
}

func (cfg Config) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.InitialDelay
	exp.MaxInterval = cfg.MaxDelay
	exp.Multiplier = cfg.BackoffFactor
	exp.MaxElapsedTime = cfg.MaxTotalTimeout
	exp.Reset()

	var bo backoff.BackOff = exp
	if cfg.MaxAttempts > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(cfg.MaxAttempts-1))
	}
	return bo
}

// Do executes the given function with exponential backoff retry logic
func Do(ctx context.Context, cfg Config, fn func() error) error {
	bo := backoff.WithContext(cfg.newBackOff(), ctx)

	var lastErr error
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		lastErr = fn()
		return lastErr
	}, bo)

	if err != nil {
		return fmt.Errorf("retry failed after %d attempts: %w", attempts, err)
	}
	return nil
}

// DoValue is Do for a function that also returns a value, for wrapping
// calls like a search or upsert response where the caller needs the result
// alongside the error.
func DoValue[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var value T
	err := Do(ctx, cfg, func() error {
		v, fnErr := fn()
		if fnErr != nil {
			return fnErr
		}
		value = v
		return nil
	})
	return value, err
}

// DoWithLog executes the function with retry and logs each attempt via logFn
// before each backoff sleep.
func DoWithLog(ctx context.Context, cfg Config, serviceName string, fn func() error, logFn func(attempt int, err error, nextDelay time.Duration)) error {
	bo := backoff.WithContext(cfg.newBackOff(), ctx)

	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		return fn()
	}, bo, func(err error, next time.Duration) {
		if logFn != nil {
			logFn(attempts, err, next)
		}
	})

	if err != nil {
		return fmt.Errorf("%s: retry failed after %d attempts: %w", serviceName, attempts, err)
	}
	return nil
}
