package service

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/cenkalti/backoff/v4"
)

const (
	retryInitialInterval = 25 * time.Millisecond
	retryMaxInterval     = 500 * time.Millisecond
)

// retry runs op until it succeeds, fails with a non-transient error, or
// attempts are used up. The last error is returned unchanged.
func retry[T any](ctx context.Context, attempts int, op func() (T, error)) (T, error) {
	if attempts < 1 {
		attempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = retryInitialInterval
	exp.MaxInterval = retryMaxInterval

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)

	return backoff.RetryWithData(func() (T, error) {
		result, err := op()
		if err != nil && !model.IsTransient(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}, policy)
}
