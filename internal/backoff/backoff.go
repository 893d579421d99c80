// Package backoff implements the reconciler's ExpBackoff(initial, max)
// contract (spec §4.4) on top of cenkalti/backoff/v5, the exponential
// backoff implementation already pulled into the example pack by
// projectcalico-calico -- another FIB-reconciliation codebase.
package backoff

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ExpBackoff tracks retry state between a minimum and maximum interval.
// The first error after a reset keeps the initial interval, each further
// error doubles it, and a reported success resets it.
type ExpBackoff struct {
	mu  sync.Mutex
	b   *backoff.ExponentialBackOff
	cur time.Duration
	min time.Duration
}

// New returns an ExpBackoff bounded to [initial, max].
func New(initial, max time.Duration) *ExpBackoff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.Multiplier = 2
	b.RandomizationFactor = 0
	return &ExpBackoff{
		b:   b,
		cur: initial,
		min: initial,
	}
}

// ReportError moves the retry interval to the next step of the sequence
// initial, 2*initial, 4*initial, ..., capped at the configured max.
func (e *ExpBackoff) ReportError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cur = e.b.NextBackOff()
}

// ReportSuccess resets the retry interval back to its initial value.
func (e *ExpBackoff) ReportSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.b.Reset()
	e.cur = e.min
}

// TimeRemainingUntilRetry returns the currently computed retry interval.
func (e *ExpBackoff) TimeRemainingUntilRetry() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cur
}
