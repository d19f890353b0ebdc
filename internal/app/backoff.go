package app

import (
	"context"
	"math/rand"
	"time"
)

// Default reopen backoff for the capture loop.
const (
	DefaultBackoffInitial = 500 * time.Millisecond
	DefaultBackoffMax     = 10 * time.Second
)

// backoff implements exponential backoff with jitter.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	if max < initial {
		max = initial
	}
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// next returns the jittered delay for this attempt (±20%) and doubles
// the base delay for the following one.
func (b *backoff) next() time.Duration {
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	d := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Wait sleeps for the next backoff delay. It returns false if ctx ended
// first.
func (b *backoff) Wait(ctx context.Context) bool {
	t := time.NewTimer(b.next())
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (b *backoff) Reset() {
	b.current = b.initial
}

func (b *backoff) Current() time.Duration {
	return b.current
}
