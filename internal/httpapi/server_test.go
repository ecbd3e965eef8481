package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storyd/pkg/types"
)

type mockService struct {
	story    types.Story
	frame    types.Frame
	err      error
	ready    bool
	debug    bool
	url      string
	panicMsg string
	lastReq  any
}

func (m *mockService) GenerateStory(ctx context.Context, req types.StoryRequest) (types.Story, error) {
	m.lastReq = req
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	return m.story, m.err
}

func (m *mockService) GenerateFrame(ctx context.Context, req types.FrameRequest) (types.Frame, error) {
	m.lastReq = req
	return m.frame, m.err
}

func (m *mockService) Narrate(ctx context.Context, req types.NarrateRequest) (types.Narration, error) {
	m.lastReq = req
	if m.err != nil {
		return types.Narration{}, m.err
	}
	return types.Narration{Success: true, Audio: "data:audio/mpeg;base64,SUQz"}, nil
}

func (m *mockService) Health() types.HealthResponse {
	return types.HealthResponse{Status: "healthy", Services: map[string]bool{"gemini": true}}
}

func (m *mockService) Ready() bool        { return m.ready }
func (m *mockService) DebugEnabled() bool { return m.debug }

func (m *mockService) SetImageURL(u string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.url = u
	return u, nil
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGenerateStoryHandler(t *testing.T) {
	svc := &mockService{story: types.Story{Success: true, Story: "Once.", ImageDescription: "a fox"}}
	rec := postJSON(t, NewMux(svc), "/generate_story", `{"image":"aGk=","genre":"mystery","length":300}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var body types.Story
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !body.Success || body.Story != "Once." || body.ImageDescription != "a fox" {
		t.Fatalf("body=%+v", body)
	}
	got := svc.lastReq.(types.StoryRequest)
	if got.Genre != "mystery" || got.Length != 300 || got.Image != "aGk=" {
		t.Fatalf("decoded request=%+v", got)
	}
}

func TestGenerateFrameHandler(t *testing.T) {
	svc := &mockService{frame: types.Frame{Success: true, Image: "data:image/png;base64,AA", Cached: true}}
	rec := postJSON(t, NewMux(svc), "/generate_frame", `{"prompt":"a boat"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"cached":true`) {
		t.Fatalf("body=%s", rec.Body.String())
	}
}

func TestNarrateHandler(t *testing.T) {
	rec := postJSON(t, NewMux(&mockService{}), "/narrate", `{"text":"hello","lang":"en"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "data:audio/mpeg") {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var body types.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Status != "healthy" || !body.Services["gemini"] {
		t.Fatalf("body=%+v", body)
	}
}

func TestReadyz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux(&mockService{ready: true}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not configured") {
		t.Fatalf("body=%q", rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestBadJSON(t *testing.T) {
	rec := postJSON(t, NewMux(&mockService{}), "/generate_frame", "not-json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
	var body types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Success || body.Code != http.StatusBadRequest {
		t.Fatalf("body=%+v", body)
	}
}

func TestUnsupportedMediaType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/generate_story", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestContentTypeCaseInsensitive(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/generate_frame", bytes.NewBufferString(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "Application/JSON; charset=utf-8")
	rec := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with mixed-case content-type, got %d", rec.Code)
	}
}

func TestBodyTooLarge(t *testing.T) {
	SetMaxBodyBytes(1 << 10)
	defer SetMaxBodyBytes(0)
	big := `{"prompt":"` + strings.Repeat("a", 2<<10) + `"}`
	rec := postJSON(t, NewMux(&mockService{}), "/generate_frame", big)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for too-large body, got %d", rec.Code)
	}
}

func TestDebugRouteOnlyInDebugMode(t *testing.T) {
	rec := postJSON(t, NewMux(&mockService{}), "/debug/image_url", `{"url":"https://x.example"}`)
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("debug route reachable outside debug mode: %d", rec.Code)
	}
	svc := &mockService{debug: true}
	rec = postJSON(t, NewMux(svc), "/debug/image_url", `{"url":"https://x.example"}`)
	if rec.Code != http.StatusOK || svc.url != "https://x.example" {
		t.Fatalf("status=%d url=%q", rec.Code, svc.url)
	}
}
