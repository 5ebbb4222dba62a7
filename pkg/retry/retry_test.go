package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2, MaxTotalTimeout: time.Second}
	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsMaxAttempts(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2, MaxTotalTimeout: time.Second}
	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		return errors.New("permanent")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoValue_ReturnsValueOnSuccess(t *testing.T) {
	calls := 0
	value, err := DoValue(context.Background(), DefaultConfig(), func() (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 1, calls)
}

func TestDoValue_RetriesAndReturnsZeroValueOnExhaustion(t *testing.T) {
	cfg := Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2, MaxTotalTimeout: time.Second}
	calls := 0
	value, err := DoValue(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, errors.New("permanent")
	})
	assert.Error(t, err)
	assert.Equal(t, 0, value)
	assert.Equal(t, 2, calls)
}

func TestDoWithLog_InvokesLogFnOnEachRetry(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2, MaxTotalTimeout: time.Second}
	logCalls := 0
	calls := 0
	err := DoWithLog(context.Background(), cfg, "svc", func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		logCalls++
	})
	require.NoError(t, err)
	assert.Equal(t, 1, logCalls)
}
