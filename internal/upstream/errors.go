package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a failure for retry and HTTP mapping.
type Kind int

const (
	KindUnexpected Kind = iota
	KindInvalidInput
	KindRateLimited
	KindTransient
	KindQuotaExceeded
	KindContentPolicy
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "upstream_transient"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindContentPolicy:
		return "content_policy"
	default:
		return "unexpected"
	}
}

// Error is a classified provider failure.
type Error struct {
	Kind     Kind
	Provider string
	// Status is the provider HTTP status, zero for transport failures.
	Status int
	// RetryAfter is the provider's hint, when it sent one.
	RetryAfter time.Duration
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		b.WriteString(" (")
		b.WriteString(strconv.Itoa(e.Status))
		b.WriteString(")")
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed. Quota errors are
// retryable so a different key can be tried.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransient || e.Kind == KindQuotaExceeded
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return KindUnexpected
}

// IsKind reports whether err is an upstream failure of kind k.
func IsKind(err error, k Kind) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Kind == k
}

// ErrContentPolicy builds a content safety rejection.
func ErrContentPolicy(provider, reason string) error {
	return &Error{Kind: KindContentPolicy, Provider: provider, Msg: reason}
}

// classifyStatus maps a non-2xx provider response to a Kind.
func classifyStatus(provider string, resp *http.Response, body []byte) *Error {
	e := &Error{Provider: provider, Status: resp.StatusCode, Msg: snippet(body)}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		e.Kind = KindQuotaExceeded
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	case resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout,
		resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusInternalServerError:
		e.Kind = KindTransient
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusRequestEntityTooLarge,
		resp.StatusCode == http.StatusUnprocessableEntity:
		e.Kind = KindInvalidInput
	default:
		e.Kind = KindUnexpected
	}
	return e
}

// classifyTransport maps a failed round trip. Caller cancellation is returned
// as is so the retry loop stops; deadlines become transient.
func classifyTransport(ctx context.Context, provider string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Kind: KindTransient, Provider: provider, Msg: "deadline exceeded", Err: err}
	}
	return &Error{Kind: KindTransient, Provider: provider, Msg: "connection failed", Err: err}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func snippet(b []byte) string {
	const max = 256
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		s = s[:max]
	}
	return s
}

func malformed(provider string, format string, args ...any) error {
	return &Error{Kind: KindUnexpected, Provider: provider, Msg: fmt.Sprintf(format, args...)}
}
