package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"igsaved/pkg/config"
	"igsaved/pkg/errors"
	"igsaved/pkg/logger"
)

func testRetryConfig() config.RetryConfig {
	return config.RetryConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), logger.NewTestLogger(), "fetch", func() error {
		calls++
		return nil
	}, testRetryConfig())

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), logger.NewTestLogger(), "fetch", func() error {
		calls++
		if calls < 3 {
			return errors.New(errors.KindNetwork, "connection reset")
		}
		return nil
	}, testRetryConfig())

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnTerminalError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), logger.NewTestLogger(), "fetch", func() error {
		calls++
		return errors.New(errors.KindAuth, "session expired")
	}, testRetryConfig())

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, errors.KindAuth))
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), logger.NewTestLogger(), "fetch", func() error {
		calls++
		return errors.New(errors.KindRateLimit, "slow down")
	}, testRetryConfig())

	assert.Error(t, err)
	// MaxAttempts retries on top of the first try.
	assert.Equal(t, 4, calls)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, logger.NewTestLogger(), "fetch", func() error {
		calls++
		cancel()
		return errors.New(errors.KindNetwork, "transient")
	}, testRetryConfig())

	assert.Error(t, err)
	assert.LessOrEqual(t, calls, 2)
}
