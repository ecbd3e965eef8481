package orchestrator

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"storyd/internal/retry"
	"storyd/internal/upstream"
)

// fakeGemini serves both vision and story calls. Errors are consumed in order,
// one per call; once exhausted calls succeed.
type fakeGemini struct {
	mu            sync.Mutex
	describeCalls int
	writeCalls    int
	describeErrs  []error
	writeErrs     []error
	keys          []string
	prompts       []string
	story         string
}

func (f *fakeGemini) Describe(ctx context.Context, apiKey, prompt string, images []upstream.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describeCalls++
	f.keys = append(f.keys, apiKey)
	f.prompts = append(f.prompts, prompt)
	if len(f.describeErrs) > 0 {
		err := f.describeErrs[0]
		f.describeErrs = f.describeErrs[1:]
		return "", err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(images[0].Data))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("a %dpx picture", cfg.Width), nil
}

func (f *fakeGemini) Write(ctx context.Context, apiKey, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeCalls++
	f.keys = append(f.keys, apiKey)
	f.prompts = append(f.prompts, prompt)
	if len(f.writeErrs) > 0 {
		err := f.writeErrs[0]
		f.writeErrs = f.writeErrs[1:]
		return "", err
	}
	if f.story == "" {
		return "Once upon a time.", nil
	}
	return f.story, nil
}

func (f *fakeGemini) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.describeCalls + f.writeCalls
}

// fakeImages is an ImageGenerator that records keys and prompts and tracks
// peak concurrency.
type fakeImages struct {
	mu       sync.Mutex
	name     string
	needsKey bool
	errs     []error
	keys     []string
	prompts  []string
	hold     time.Duration
	inflight int
	peak     int
	base     string
}

func (f *fakeImages) Name() string   { return f.name }
func (f *fakeImages) NeedsKey() bool { return f.needsKey }

func (f *fakeImages) GenerateImage(ctx context.Context, apiKey, prompt string) (upstream.GeneratedImage, error) {
	f.mu.Lock()
	f.keys = append(f.keys, apiKey)
	f.prompts = append(f.prompts, prompt)
	f.inflight++
	if f.inflight > f.peak {
		f.peak = f.inflight
	}
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	f.mu.Unlock()
	if f.hold > 0 {
		time.Sleep(f.hold)
	}
	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()
	if err != nil {
		return upstream.GeneratedImage{}, err
	}
	return upstream.GeneratedImage{MIME: "image/png", Base64: "UE5H"}, nil
}

func (f *fakeImages) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeImages) SetBaseURL(u string) {
	f.mu.Lock()
	f.base = u
	f.mu.Unlock()
}

func (f *fakeImages) BaseURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.base
}

type fakeNarrator struct {
	mu    sync.Mutex
	calls int
	lang  string
	errs  []error
}

func (f *fakeNarrator) Synthesize(ctx context.Context, text, lang string) (upstream.Audio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lang = lang
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return upstream.Audio{}, err
	}
	return upstream.Audio{MIME: "audio/mpeg", Data: []byte("ID3")}, nil
}

// fastPlan retries quickly so tests do not sleep on real delays.
func fastPlan(attempts int) retry.Plan {
	p := retry.Plan{}
	for i := 0; i < attempts; i++ {
		p.Delays = append(p.Delays, time.Millisecond)
	}
	return p
}

func transientErr() error {
	return &upstream.Error{Kind: upstream.KindTransient, Provider: "fake", Status: 503}
}

func quotaErr() error {
	return &upstream.Error{Kind: upstream.KindQuotaExceeded, Provider: "fake", Status: 429}
}

// pngBase64 encodes a blank square of the given width as base64 PNG.
func pngBase64(t *testing.T, width int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, width))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

type testEnv struct {
	orch   *Orchestrator
	gemini *fakeGemini
	images *fakeImages
	tts    *fakeNarrator
	pub    *MemoryPublisher
}

// newTestEnv wires fakes with fast plans. mutate may adjust the config.
func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	env := &testEnv{
		gemini: &fakeGemini{},
		images: &fakeImages{name: "stability", needsKey: true},
		tts:    &fakeNarrator{},
		pub:    NewMemoryPublisher(),
	}
	cfg := Config{
		Vision:     env.gemini,
		Story:      env.gemini,
		Images:     env.images,
		Narrator:   env.tts,
		GeminiKeys: []string{"g1"},
		ImageKeys:  []string{"s1", "s2", "s3"},
		GeminiPlan: fastPlan(5),
		ImagePlan:  fastPlan(5),
		TTSPlan:    fastPlan(3),
		Publisher:  env.pub,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	env.orch = NewWithConfig(cfg)
	return env
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}
