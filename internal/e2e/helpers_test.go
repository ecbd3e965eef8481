package e2e

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"storyd/internal/httpapi"
	"storyd/internal/orchestrator"
	"storyd/internal/retry"
	"storyd/internal/upstream"
)

// providers fakes Gemini, Stability and the TTS endpoint on one server.
type providers struct {
	mu sync.Mutex
	// exhausted Stability keys answer 429
	exhausted   map[string]bool
	geminiCalls int
	imageKeys   []string
	imageCalls  int
	ttsCalls    int
}

func (p *providers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case strings.HasSuffix(r.URL.Path, ":generateContent"):
		p.geminiCalls++
		if r.Header.Get("x-goog-api-key") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		text := "A small fox sits in a garden."
		if strings.Contains(r.URL.Path, "gemini-pro:") {
			text = "Once upon a time a fox made a friend."
		}
		writeBody(w, http.StatusOK, map[string]any{
			"candidates": []any{map[string]any{
				"content":      map[string]any{"parts": []any{map[string]any{"text": text}}},
				"finishReason": "STOP",
			}},
		})
	case strings.HasSuffix(r.URL.Path, "/text-to-image"):
		p.imageCalls++
		key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		p.imageKeys = append(p.imageKeys, key)
		if p.exhausted[key] {
			w.Header().Set("Retry-After", "120")
			writeBody(w, http.StatusTooManyRequests, map[string]any{"name": "rate_limit_exceeded", "message": "slow down"})
			return
		}
		writeBody(w, http.StatusOK, map[string]any{
			"artifacts": []any{map[string]any{"base64": "UE5H", "finishReason": "SUCCESS"}},
		})
	case r.URL.Path == "/translate_tts":
		p.ttsCalls++
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3"))
	default:
		http.NotFound(w, r)
	}
}

func writeBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type stack struct {
	api  *httptest.Server
	fake *providers
	orch *orchestrator.Orchestrator
}

// newStack runs the real adapters and HTTP layer against fake providers.
func newStack(t *testing.T, mutate func(*orchestrator.Config)) *stack {
	t.Helper()
	fake := &providers{exhausted: map[string]bool{}}
	up := httptest.NewServer(fake)
	t.Cleanup(up.Close)

	cli := up.Client()
	gemini := upstream.NewGemini(upstream.GeminiConfig{BaseURL: up.URL, Client: cli})
	fast := retry.Plan{Delays: []time.Duration{time.Millisecond, time.Millisecond}}
	cfg := orchestrator.Config{
		Vision:     gemini,
		Story:      gemini,
		Images:     upstream.NewStability(upstream.StabilityConfig{BaseURL: up.URL, Client: cli}),
		Narrator:   upstream.NewSpeech(up.URL, cli),
		GeminiKeys: []string{"g1"},
		ImageKeys:  []string{"s1", "s2"},
		GeminiPlan: fast,
		ImagePlan:  fast,
		TTSPlan:    fast,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	orch := orchestrator.NewWithConfig(cfg)
	api := httptest.NewServer(httpapi.NewMux(orch))
	t.Cleanup(api.Close)
	return &stack{api: api, fake: fake, orch: orch}
}

func httpPostJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, out
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, out
}

func tinyPNG(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
