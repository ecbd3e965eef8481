// Package retry runs a fallible upstream call under an explicit delay plan.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultAttemptTimeout bounds a single attempt when no option overrides it.
const DefaultAttemptTimeout = 30 * time.Second

// Plan is an ordered list of waits. len(Delays) is the attempt bound and
// Delays[i] is the wait after failed attempt i; the last delay is unused.
type Plan struct {
	Delays []time.Duration
}

// PlanFromSeconds builds a plan from fractional seconds, as found in config.
func PlanFromSeconds(secs []float64) Plan {
	p := Plan{Delays: make([]time.Duration, 0, len(secs))}
	for _, s := range secs {
		if s < 0 {
			s = 0
		}
		p.Delays = append(p.Delays, time.Duration(s*float64(time.Second)))
	}
	return p
}

// Attempts returns how many times an operation may run under p. A plan
// without delays still allows one attempt.
func (p Plan) Attempts() int {
	if len(p.Delays) == 0 {
		return 1
	}
	return len(p.Delays)
}

// budget is an upper bound on the total time the plan may take.
func (p Plan) budget(attemptTimeout time.Duration) time.Duration {
	total := time.Duration(p.Attempts()) * attemptTimeout
	for _, d := range p.Delays {
		total += d
	}
	return total + time.Minute
}

// Retryable is implemented by errors that know whether another attempt can help.
type Retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err, or any error it wraps, asks to be retried.
// Errors that do not say so are terminal.
func IsRetryable(err error) bool {
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// Option tweaks a single Do call.
type Option func(*options)

type options struct {
	attemptTimeout time.Duration
	notify         func(attempt int, err error, wait time.Duration)
}

// WithAttemptTimeout sets the deadline applied to each attempt; zero disables it.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *options) { o.attemptTimeout = d }
}

// WithNotify registers a hook called before each wait.
func WithNotify(fn func(attempt int, err error, wait time.Duration)) Option {
	return func(o *options) { o.notify = fn }
}

// planBackOff replays the plan delays in order and then stops.
type planBackOff struct {
	delays []time.Duration
	next   int
}

func (b *planBackOff) NextBackOff() time.Duration {
	if b.next >= len(b.delays) {
		return backoff.Stop
	}
	d := b.delays[b.next]
	b.next++
	return d
}

func (b *planBackOff) Reset() { b.next = 0 }

// Do invokes op until it succeeds, returns a non-retryable error, or the plan
// is exhausted. The last error is returned unchanged. Cancelling ctx stops the
// loop during a wait and returns the context error.
func Do[T any](ctx context.Context, plan Plan, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := options{attemptTimeout: DefaultAttemptTimeout}
	for _, fn := range opts {
		fn(&o)
	}
	attempt := 0
	wrapped := func() (T, error) {
		attempt++
		actx, cancel := ctx, context.CancelFunc(func() {})
		if o.attemptTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, o.attemptTimeout)
		}
		defer cancel()
		res, err := op(actx)
		if err != nil && !IsRetryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	bopts := []backoff.RetryOption{
		backoff.WithBackOff(&planBackOff{delays: plan.Delays}),
		backoff.WithMaxTries(uint(plan.Attempts())),
		backoff.WithMaxElapsedTime(plan.budget(o.attemptTimeout)),
	}
	if o.notify != nil {
		bopts = append(bopts, backoff.WithNotify(func(err error, wait time.Duration) {
			o.notify(attempt, err, wait)
		}))
	}
	res, err := backoff.Retry(ctx, wrapped, bopts...)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return res, err
}
