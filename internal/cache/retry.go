package cache

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds how a failed fetch or mutation is repeated.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// Delay before the first retry. With Exponential set it doubles on every
	// further attempt, capped at MaxDelay.
	Delay       time.Duration
	MaxDelay    time.Duration
	Exponential bool
	// Retryable filters errors worth repeating; nil retries every error.
	Retryable func(error) bool
}

// NoRetry fails on the first error.
func NoRetry() RetryPolicy {
	return RetryPolicy{}
}

// ExponentialRetry doubles the delay from base on every attempt, up to maxDelay.
func ExponentialRetry(maxRetries int, base, maxDelay time.Duration) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, Delay: base, MaxDelay: maxDelay, Exponential: true}
}

// FixedRetry waits the same delay before every retry.
func FixedRetry(maxRetries int, delay time.Duration) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, Delay: delay}
}

// WithRetryable returns a copy of p that only retries errors accepted by fn.
func (p RetryPolicy) WithRetryable(fn func(error) bool) RetryPolicy {
	p.Retryable = fn
	return p
}

func (p RetryPolicy) backoff() retry.Backoff {
	delay := p.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}
	var b retry.Backoff
	if p.Exponential {
		b = retry.NewExponential(delay)
		if p.MaxDelay > 0 {
			b = retry.WithCappedDuration(p.MaxDelay, b)
		}
	} else {
		b = retry.NewConstant(delay)
	}
	return retry.WithMaxRetries(uint64(p.MaxRetries), b)
}

// runWithRetry calls fn until it succeeds, returns a non-retryable error, or
// the policy is exhausted. onFail sees every failed attempt (1-based).
func runWithRetry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error), onFail func(attempt int, err error)) (T, error) {
	if p.MaxRetries <= 0 {
		v, err := fn(ctx)
		if err != nil && onFail != nil {
			onFail(1, err)
		}
		return v, err
	}

	var out T
	attempt := 0
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		v, err := fn(ctx)
		if err != nil {
			if onFail != nil {
				onFail(attempt, err)
			}
			if p.Retryable == nil || p.Retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = v
		return nil
	})
	return out, err
}
