// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestDelay ensures the delays grow geometrically and respect the cap.
func TestDelay(t *testing.T) {
	p := Policy{
		BaseDelay:  100 * time.Millisecond,
		Multiplier: 2,
		MaxDelay:   time.Second,
	}
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{50, time.Second},
	}
	for _, test := range tests {
		if got := p.Delay(test.retry); got != test.want {
			t.Errorf("retry %d: got %v, want %v", test.retry, got, test.want)
		}
	}
}

// TestDo ensures transient errors are retried up to the limit while
// unrecoverable errors and successes return immediately.
func TestDo(t *testing.T) {
	errTransient := errors.New("transient")
	errFatal := errors.New("fatal")
	p := Policy{MaxRetries: 3, BaseDelay: time.Millisecond, Multiplier: 1}

	tests := []struct {
		name      string
		failures  int
		fail      error
		wantCalls int
		wantErr   error
	}{{
		name:      "success first try",
		wantCalls: 1,
	}, {
		name:      "success after two failures",
		failures:  2,
		fail:      errTransient,
		wantCalls: 3,
	}, {
		name:      "retries exhausted",
		failures:  10,
		fail:      errTransient,
		wantCalls: 4,
		wantErr:   errTransient,
	}, {
		name:      "unrecoverable error",
		failures:  10,
		fail:      Unrecoverable(errFatal),
		wantCalls: 1,
		wantErr:   errFatal,
	}}

	for _, test := range tests {
		calls := 0
		err := p.Do(context.Background(), test.name, func(context.Context) error {
			calls++
			if calls <= test.failures {
				return test.fail
			}
			return nil
		})
		if calls != test.wantCalls {
			t.Errorf("%q: got %d calls, want %d", test.name, calls,
				test.wantCalls)
		}
		if !errors.Is(err, test.wantErr) {
			t.Errorf("%q: got err %v, want %v", test.name, err, test.wantErr)
		}
	}
}

// TestDoContextCanceled ensures waiting between retries stops once the
// context is canceled.
func TestDoContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxRetries: 5, BaseDelay: time.Hour, Multiplier: 1}
	errTransient := errors.New("transient")
	calls := 0
	err := p.Do(ctx, "canceled", func(context.Context) error {
		calls++
		cancel()
		return errTransient
	})
	if calls != 1 || !errors.Is(err, context.Canceled) {
		t.Fatalf("got %d calls and err %v", calls, err)
	}
}

// TestDoBackoff ensures the waits between attempts follow the policy delays.
func TestDoBackoff(t *testing.T) {
	p := Policy{
		MaxRetries: 3,
		BaseDelay:  20 * time.Millisecond,
		Multiplier: 2,
		MaxDelay:   50 * time.Millisecond,
	}
	errTransient := errors.New("transient")
	var attempts []time.Time
	err := p.Do(context.Background(), "backoff", func(context.Context) error {
		attempts = append(attempts, time.Now())
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("got err %v, want %v", err, errTransient)
	}
	if len(attempts) != 4 {
		t.Fatalf("got %d attempts, want 4", len(attempts))
	}
	for i := 1; i < len(attempts); i++ {
		gap := attempts[i].Sub(attempts[i-1])
		if want := p.Delay(i); gap < want {
			t.Errorf("wait before attempt %d: got %v, want at least %v",
				i+1, gap, want)
		}
	}
}

// TestDoNoRetries ensures a policy without retries makes a single attempt.
func TestDoNoRetries(t *testing.T) {
	errTransient := errors.New("transient")
	calls := 0
	err := Policy{}.Do(context.Background(), "once", func(context.Context) error {
		calls++
		return errTransient
	})
	if calls != 1 || !errors.Is(err, errTransient) {
		t.Fatalf("got %d calls and err %v", calls, err)
	}
}
