package repository

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
)

// RetryPolicy bounds retries of transient store errors.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialInterval: 25 * time.Millisecond, MaxInterval: 500 * time.Millisecond}
}

// Retry runs op, retrying with exponential backoff only while it fails with
// a TransientStore error. Any other error is returned immediately.
func Retry(ctx context.Context, p RetryPolicy, op func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0

	operation := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if apperr.Is(err, apperr.KindTransientStore) {
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx))
}
