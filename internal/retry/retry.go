// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package retry provides the exponential backoff policy wrapped around every
// outbound network call.
package retry

import (
	"context"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

const (
	// DefaultMaxRetries is the default number of retries after the initial
	// attempt.
	DefaultMaxRetries = 6

	// DefaultBaseDelay is the default delay before the first retry.
	DefaultBaseDelay = 500 * time.Millisecond

	// DefaultMultiplier is the default growth factor of the delay between
	// successive retries.
	DefaultMultiplier = 2.0

	// DefaultMaxDelay is the default upper bound of a single delay.
	DefaultMaxDelay = 30 * time.Second
)

// Policy describes how failed operations are retried.
type Policy struct {
	// MaxRetries is the number of retries performed after the initial
	// attempt fails.  Zero disables retries.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// Multiplier scales the delay after every retry.  Values below one are
	// treated as one.
	Multiplier float64

	// MaxDelay caps a single delay.  Zero means no cap.
	MaxDelay time.Duration
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		Multiplier: DefaultMultiplier,
		MaxDelay:   DefaultMaxDelay,
	}
}

// Delay returns the delay to wait before the provided retry, where the first
// retry is 1.
func (p Policy) Delay(retry int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay)
	for i := 1; i < retry; i++ {
		d *= mult
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Unrecoverable wraps the error so Do returns it immediately instead of
// retrying.  Do returns the wrapped error itself.
func Unrecoverable(err error) error {
	return retrygo.Unrecoverable(err)
}

// delayType returns the retry-go delay function for the policy.  retry-go
// numbers retries from zero.
func (p Policy) delayType() retrygo.DelayTypeFunc {
	return func(n uint, _ error, _ *retrygo.Config) time.Duration {
		return p.Delay(int(n) + 1)
	}
}

// options returns the retry-go options that implement the policy for an
// operation described by what.
func (p Policy) options(ctx context.Context, what string) []retrygo.Option {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	attempts := uint(maxRetries + 1)
	return []retrygo.Option{
		retrygo.Context(ctx),
		retrygo.Attempts(attempts),
		retrygo.Delay(p.BaseDelay),
		retrygo.MaxDelay(p.MaxDelay),
		retrygo.DelayType(p.delayType()),
		retrygo.LastErrorOnly(true),
		retrygo.OnRetry(func(n uint, err error) {
			if n+1 >= attempts {
				return
			}
			log.Debugf("%s failed (attempt %d/%d), retrying in %v: %v",
				what, n+1, attempts, p.Delay(int(n)+1), err)
		}),
	}
}

// Do invokes op until it succeeds, returns an unrecoverable error or the
// retries are exhausted, in which case the last error is returned.  The
// context error is returned once the context is done.  The description is
// only used for logging.
func (p Policy) Do(ctx context.Context, what string, op func(ctx context.Context) error) error {
	return retrygo.Do(func() error {
		return op(ctx)
	}, p.options(ctx, what)...)
}
