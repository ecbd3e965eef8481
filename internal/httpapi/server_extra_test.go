package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"storyd/pkg/types"
)

// blockService waits for the request context to end.
type blockService struct{ mockService }

func (b *blockService) GenerateStory(ctx context.Context, req types.StoryRequest) (types.Story, error) {
	<-ctx.Done()
	return types.Story{}, ctx.Err()
}

func TestStoryLogsWithZerologInfo(t *testing.T) {
	SetLogger(zerolog.New(io.Discard))
	defer func() { zlog = nil }()

	svc := &mockService{story: types.Story{Success: true}}
	rec := postJSON(t, NewMux(svc), "/generate_story?log=debug", `{"image":"x"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with debug logging, got %d", rec.Code)
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	h := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options=nosniff, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard Access-Control-Allow-Origin, got %q", got)
	}
}

func TestCORSDisabled(t *testing.T) {
	SetCORSOptions(false, nil, nil, nil)
	defer SetCORSOptions(true, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("CORS header set while disabled: %q", got)
	}
}

func TestOptionsReturnsNoContent(t *testing.T) {
	h := NewMux(&mockService{})
	for _, p := range optionsRoutes {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, p, nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("OPTIONS %s status=%d", p, rec.Code)
		}
	}
}

func TestPreflightAllowsPost(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/generate_frame", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(rec, req)
	if rec.Code >= 300 {
		t.Fatalf("preflight status=%d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("preflight missing allow-origin")
	}
}

func TestRequestTimeoutReturns503(t *testing.T) {
	defer SetRequestTimeoutSeconds(0)
	SetRequestTimeoutSeconds(1)

	rec := postJSON(t, NewMux(&blockService{}), "/generate_story", `{"image":"x"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on timeout, got %d", rec.Code)
	}
}

func TestShutdownCancelsInflight(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(context.Background())
	cancel()

	rec := postJSON(t, NewMux(&blockService{}), "/generate_story", `{"image":"x"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after shutdown, got %d", rec.Code)
	}
}

func TestPanicBecomesJSON500(t *testing.T) {
	SetLogger(zerolog.New(io.Discard))
	defer func() { zlog = nil }()

	req := httptest.NewRequest(http.MethodPost, "/generate_story", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	NewMux(&mockService{panicMsg: "boom"}).ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	var body types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("panic body is not JSON: %v", err)
	}
	if body.Success || body.Error == "boom" {
		t.Fatalf("body=%+v", body)
	}
}
