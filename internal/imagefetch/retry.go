package imagefetch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how often an operation is attempted and how long to wait between attempts
type RetryPolicy struct {
	MaxAttempts int
	Initial     time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy is 3 attempts waiting 500ms then 1s
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Initial:     500 * time.Millisecond,
	Multiplier:  2,
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do runs op until it succeeds, returns a permanent error, or attempts run out.
// It reports how many attempts were made.
func (p RetryPolicy) Do(ctx context.Context, op func(attempt int) error) (int, error) {
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		return op(attempts)
	}, p.backOff(ctx))
	return attempts, err
}

// Permanent marks an error that must not be retried
func Permanent(err error) error {
	return backoff.Permanent(err)
}
