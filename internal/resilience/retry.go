package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kailas-cloud/clubrec/internal/domain"
	"github.com/kailas-cloud/clubrec/internal/metrics"
)

// RetryPolicy bounds one upstream call: AttemptTimeout applies to every attempt,
// MaxRetries counts attempts after the first.
type RetryPolicy struct {
	MaxRetries     int
	Backoff        time.Duration
	AttemptTimeout time.Duration
}

// Retry runs fn under p. Only transient failures and per-attempt timeouts are
// retried; anything else, or a done parent context, stops immediately.
func Retry[T any](ctx context.Context, p RetryPolicy, upstream string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	op := func() (T, error) {
		if attempt > 0 {
			metrics.UpstreamRetriesTotal.WithLabelValues(upstream).Inc()
		}
		attempt++

		actx, cancel := ctx, context.CancelFunc(func() {})
		if p.AttemptTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		defer cancel()

		v, err := fn(actx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	retries := max(p.MaxRetries, 0)
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Backoff), uint64(retries)),
		ctx,
	)
	return backoff.RetryWithData(op, b)
}

// IsRetryable reports whether err is worth one more attempt.
func IsRetryable(err error) bool {
	if errors.Is(err, domain.ErrUpstreamOpen) ||
		errors.Is(err, domain.ErrVectorDimMismatch) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, domain.ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}
