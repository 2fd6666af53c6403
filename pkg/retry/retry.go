package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"igsaved/pkg/config"
	errs "igsaved/pkg/errors"
	"igsaved/pkg/logger"
)

// Operation is a function that may be retried.
type Operation func() error

// Do runs operation with exponential backoff per cfg, retrying only errors
// that are classified retryable. The context cancels waits between
// attempts.
func Do(ctx context.Context, log logger.Logger, operationName string, operation Operation, cfg config.RetryConfig) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval
	bo.Multiplier = cfg.Multiplier
	bo.Reset()

	wrapped := func() error {
		err := operation()
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		if !errs.IsRetryable(errs.KindOf(err)) {
			return backoff.Permanent(err)
		}
		return err
	}

	retryable := backoff.WithMaxRetries(bo, uint64(cfg.MaxAttempts))
	retryableWithContext := backoff.WithContext(retryable, ctx)

	notify := func(err error, next time.Duration) {
		log.WarnWithFields("operation failed, retrying", map[string]interface{}{
			"operation":       operationName,
			"error":           err.Error(),
			"next_attempt_in": next.Round(time.Millisecond).String(),
		})
	}

	return backoff.RetryNotify(wrapped, retryableWithContext, notify)
}
