package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestKindOf_WrappedChain(t *testing.T) {
	base := &Error{Kind: KindTransient, Provider: "p"}
	wrapped := fmt.Errorf("attempt 2: %w", base)
	if KindOf(wrapped) != KindTransient || !IsKind(wrapped, KindTransient) {
		t.Fatalf("kind not found through wrap")
	}
	if KindOf(errors.New("plain")) != KindUnexpected {
		t.Fatalf("plain errors are unexpected")
	}
}

func TestError_Retryable(t *testing.T) {
	for k, want := range map[Kind]bool{
		KindTransient:     true,
		KindQuotaExceeded: true,
		KindInvalidInput:  false,
		KindContentPolicy: false,
		KindUnexpected:    false,
	} {
		if got := (&Error{Kind: k}).Retryable(); got != want {
			t.Fatalf("%v retryable=%v", k, got)
		}
	}
}

func TestClassifyTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := classifyTransport(ctx, "p", errors.New("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled ctx should surface as is, got %v", err)
	}
	err := classifyTransport(context.Background(), "p", context.DeadlineExceeded)
	if !IsKind(err, KindTransient) {
		t.Fatalf("deadline should be transient, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d := parseRetryAfter("30"); d != 30*time.Second {
		t.Fatalf("d=%v", d)
	}
	if d := parseRetryAfter(""); d != 0 {
		t.Fatalf("empty d=%v", d)
	}
	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	if d := parseRetryAfter(future); d <= 0 {
		t.Fatalf("http date not parsed")
	}
}
