// Package retry provides the exponential backoff the accept loop uses
// to ride out temporary failures such as file-descriptor exhaustion.
package retry

import (
	"context"
	"sync"
	"time"
)

// Backoff implements capped exponential backoff.  It is
// stateful: every Wait doubles the next delay until Reset is called.
type Backoff struct {
	// InitialDelay is the delay before the first retry (default 5ms).
	InitialDelay time.Duration
	// MaxDelay caps the backoff duration (default 1s).
	MaxDelay time.Duration
	// Multiplier increases the delay each attempt (default 2.0).
	Multiplier float64

	mu      sync.Mutex
	current time.Duration
}

// DefaultBackoff returns the configuration used around Accept.
func DefaultBackoff() *Backoff {
	return &Backoff{
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}
}

// Next returns the delay for the coming retry and advances the
// internal state.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	initial := b.InitialDelay
	if initial <= 0 {
		initial = 5 * time.Millisecond
	}
	multiplier := b.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	maxDelay := b.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Second
	}

	if b.current == 0 {
		b.current = initial
	} else {
		b.current = time.Duration(float64(b.current) * multiplier)
	}
	if b.current > maxDelay {
		b.current = maxDelay
	}
	return b.current
}

// Reset returns the backoff to its initial delay.  Call it after a
// successful attempt.
func (b *Backoff) Reset() {
	b.mu.Lock()
	b.current = 0
	b.mu.Unlock()
}

// Wait sleeps for Next() or until ctx is done, whichever comes first.
func (b *Backoff) Wait(ctx context.Context) error {
	t := time.NewTimer(b.Next())
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
