package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"storyd/internal/upstream"
)

// invalidInputError rejects a request before any quota is used.
type invalidInputError struct{ msg string }

func (e invalidInputError) Error() string { return e.msg }

// ErrInvalidInput constructs an invalidInputError.
func ErrInvalidInput(msg string) error { return invalidInputError{msg: msg} }

// IsInvalidInput reports whether err rejects caller input (return 400).
func IsInvalidInput(err error) bool {
	var e invalidInputError
	return errors.As(err, &e)
}

// rateLimitedError signals a local sliding window rejection.
type rateLimitedError struct {
	service    string
	retryAfter time.Duration
}

func (e rateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.service, e.retryAfter)
}

// IsRateLimited reports whether err is a local rate limit rejection (return 429).
func IsRateLimited(err error) bool {
	var e rateLimitedError
	return errors.As(err, &e)
}

// keysCoolingError is returned instead of sleeping when every key of a
// provider is in cooldown.
type keysCoolingError struct {
	provider   string
	retryAfter time.Duration
	// err is the provider quota response that exhausted the pool, if any.
	err error
}

func (e keysCoolingError) Error() string {
	msg := fmt.Sprintf("all %s keys cooling down, retry after %s", e.provider, e.retryAfter)
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

func (e keysCoolingError) Unwrap() error { return e.err }

// IsQuotaExceeded reports whether err means quota is exhausted, either
// locally across all keys or as reported by the provider.
func IsQuotaExceeded(err error) bool {
	var e keysCoolingError
	return errors.As(err, &e) || upstream.IsKind(err, upstream.KindQuotaExceeded)
}

// notConfiguredError signals a provider without credentials or address so the
// HTTP layer can return 503 instead of 500.
type notConfiguredError struct{ provider string }

func (e notConfiguredError) Error() string { return e.provider + " is not configured" }

// ErrNotConfigured constructs a notConfiguredError.
func ErrNotConfigured(provider string) error { return notConfiguredError{provider: provider} }

// IsNotConfigured reports whether err indicates a missing provider setup.
func IsNotConfigured(err error) bool {
	var e notConfiguredError
	return errors.As(err, &e)
}

// Failure is the caller-visible rendering of an error.
type Failure struct {
	Status     int
	Kind       string
	Message    string
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, at least 1 when set.
func (f Failure) RetryAfterSeconds() int {
	if f.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(f.RetryAfter.Seconds()))
}

// Caller-visible messages.
const (
	msgRateLimited   = "Rate limit exceeded. Please wait and try again."
	msgQuota         = "The AI service quota is exhausted. Please try again later."
	msgOverloaded    = "The AI service is currently overloaded. Please try again in a few moments."
	msgNotConfigured = "The AI service is not configured."
	msgContentPolicy = "The request was blocked by the content safety filter. Please try a different image or prompt."
	msgRejected      = "The AI service rejected the request."
	msgUnexpected    = "An unexpected error occurred. Please try again later."
	msgCanceled      = "The request was canceled."
)

// Classify maps err to an HTTP status, a failure kind and a message safe to
// show to callers. Unexpected errors never leak their text.
func Classify(err error) Failure {
	var (
		inv  invalidInputError
		rl   rateLimitedError
		kc   keysCoolingError
		nc   notConfiguredError
		uerr *upstream.Error
	)
	switch {
	case err == nil:
		return Failure{Status: http.StatusOK}
	case errors.As(err, &inv):
		return Failure{Status: http.StatusBadRequest, Kind: upstream.KindInvalidInput.String(), Message: inv.msg}
	case errors.As(err, &rl):
		return Failure{Status: http.StatusTooManyRequests, Kind: upstream.KindRateLimited.String(), Message: msgRateLimited, RetryAfter: rl.retryAfter}
	case errors.As(err, &kc):
		return Failure{Status: http.StatusTooManyRequests, Kind: upstream.KindQuotaExceeded.String(), Message: msgQuota, RetryAfter: kc.retryAfter}
	case errors.As(err, &nc):
		return Failure{Status: http.StatusServiceUnavailable, Kind: upstream.KindTransient.String(), Message: msgNotConfigured}
	case errors.As(err, &uerr):
		return classifyUpstream(uerr)
	case errors.Is(err, context.DeadlineExceeded):
		return Failure{Status: http.StatusServiceUnavailable, Kind: upstream.KindTransient.String(), Message: msgOverloaded}
	case errors.Is(err, context.Canceled):
		return Failure{Status: http.StatusServiceUnavailable, Kind: upstream.KindTransient.String(), Message: msgCanceled}
	default:
		return Failure{Status: http.StatusInternalServerError, Kind: upstream.KindUnexpected.String(), Message: msgUnexpected}
	}
}

func classifyUpstream(e *upstream.Error) Failure {
	k := e.Kind.String()
	switch e.Kind {
	case upstream.KindQuotaExceeded:
		return Failure{Status: http.StatusTooManyRequests, Kind: k, Message: msgQuota, RetryAfter: e.RetryAfter}
	case upstream.KindTransient:
		return Failure{Status: http.StatusServiceUnavailable, Kind: k, Message: msgOverloaded}
	case upstream.KindContentPolicy:
		return Failure{Status: http.StatusUnprocessableEntity, Kind: k, Message: msgContentPolicy}
	case upstream.KindInvalidInput:
		return Failure{Status: http.StatusBadRequest, Kind: k, Message: msgRejected}
	default:
		return Failure{Status: http.StatusInternalServerError, Kind: k, Message: msgUnexpected}
	}
}
