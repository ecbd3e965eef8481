package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"storyd/internal/upstream"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{ErrInvalidInput("bad"), http.StatusBadRequest, "invalid_input"},
		{rateLimitedError{service: "gemini", retryAfter: time.Second}, http.StatusTooManyRequests, "rate_limited"},
		{keysCoolingError{provider: "stability", retryAfter: time.Minute}, http.StatusTooManyRequests, "quota_exceeded"},
		{ErrNotConfigured("gemini"), http.StatusServiceUnavailable, "upstream_transient"},
		{fmt.Errorf("wrap: %w", transientErr()), http.StatusServiceUnavailable, "upstream_transient"},
		{quotaErr(), http.StatusTooManyRequests, "quota_exceeded"},
		{upstream.ErrContentPolicy("gemini", "x"), http.StatusUnprocessableEntity, "content_policy"},
		{&upstream.Error{Kind: upstream.KindInvalidInput}, http.StatusBadRequest, "invalid_input"},
		{&upstream.Error{Kind: upstream.KindUnexpected}, http.StatusInternalServerError, "unexpected"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "upstream_transient"},
		{errors.New("boom: secret detail"), http.StatusInternalServerError, "unexpected"},
	}
	for _, tc := range cases {
		f := Classify(tc.err)
		if f.Status != tc.status || f.Kind != tc.kind {
			t.Fatalf("%v: got %d/%s want %d/%s", tc.err, f.Status, f.Kind, tc.status, tc.kind)
		}
	}
	if f := Classify(errors.New("boom: secret detail")); f.Message != msgUnexpected {
		t.Fatalf("unexpected error leaked: %q", f.Message)
	}
}

func TestFailure_RetryAfterSecondsRoundsUp(t *testing.T) {
	if got := (Failure{RetryAfter: 1500 * time.Millisecond}).RetryAfterSeconds(); got != 2 {
		t.Fatalf("got %d", got)
	}
	if got := (Failure{}).RetryAfterSeconds(); got != 0 {
		t.Fatalf("got %d", got)
	}
}

func TestKeysCoolingWrapsProviderError(t *testing.T) {
	q := quotaErr()
	err := keysCoolingError{provider: "stability", retryAfter: time.Minute, err: q}
	if !errors.Is(err, q) || !IsQuotaExceeded(err) {
		t.Fatalf("cooling error should unwrap to the quota response")
	}
}
