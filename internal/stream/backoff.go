package stream

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// LinearBackOff grows the reconnect delay by a fixed step per consecutive
// failure: min(Max, Base + attempt*Step). Reset drops the attempt count to zero.
type LinearBackOff struct {
	Base time.Duration
	Step time.Duration
	Max  time.Duration

	mu      sync.Mutex
	attempt int
}

var _ backoff.BackOff = (*LinearBackOff)(nil)

// NextBackOff records a failure and returns the delay before the next attempt.
func (b *LinearBackOff) NextBackOff() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempt++
	return b.delay(b.attempt)
}

// Reset is called after a successful open.
func (b *LinearBackOff) Reset() {
	b.mu.Lock()
	b.attempt = 0
	b.mu.Unlock()
}

// Attempts returns the number of consecutive failures since the last Reset.
func (b *LinearBackOff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempt
}

func (b *LinearBackOff) delay(attempt int) time.Duration {
	d := b.Base + time.Duration(attempt)*b.Step
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}
