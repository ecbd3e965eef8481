// Package ratelimit implements sliding-window admission control for upstream
// providers. Each provider owns an independent Limiter; a Set groups them by
// service id for the orchestrator.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is set on rejection: time until the oldest admission leaves the window.
	RetryAfter time.Duration
}

// Limiter admits or rejects one upstream call attempt.
type Limiter interface {
	TryAdmit(ctx context.Context) (Decision, error)
}

// Window is an in-memory sliding window. Timestamps are appended in
// non-decreasing order so expired entries are always at the head.
type Window struct {
	mu    sync.Mutex
	times []time.Time
	size  time.Duration
	max   int
	now   func() time.Time
}

// NewWindow builds a window admitting at most limit calls per size.
// A nil clock defaults to time.Now.
func NewWindow(size time.Duration, limit int, now func() time.Time) *Window {
	if now == nil {
		now = time.Now
	}
	return &Window{
		times: make([]time.Time, 0, max(limit, 0)),
		size:  size,
		max:   limit,
		now:   now,
	}
}

// TryAdmit implements Limiter using the window clock. It never fails.
func (w *Window) TryAdmit(_ context.Context) (Decision, error) {
	return w.TryAdmitAt(w.now()), nil
}

// TryAdmitAt runs the admission check as if the current time were now.
func (w *Window) TryAdmitAt(now time.Time) Decision {
	if w.max <= 0 {
		return Decision{Allowed: true, Limit: w.max}
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	start := now.Add(-w.size)
	n := 0
	for n < len(w.times) && w.times[n].Before(start) {
		n++
	}
	if n > 0 {
		// shift instead of reslicing so the backing array does not grow forever
		w.times = append(w.times[:0], w.times[n:]...)
	}

	if len(w.times) >= w.max {
		return Decision{
			Allowed:    false,
			Limit:      w.max,
			Remaining:  0,
			RetryAfter: w.times[0].Add(w.size).Sub(now),
		}
	}
	w.times = append(w.times, now)
	return Decision{Allowed: true, Limit: w.max, Remaining: w.max - len(w.times)}
}

// Len reports how many admissions are currently retained.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.times)
}
