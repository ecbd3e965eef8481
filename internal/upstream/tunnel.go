package upstream

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

const ProviderTunnel = "tunnel"

// Tunnel talks to a self-hosted SDXL server exposed through a tunnel. The
// base URL changes whenever the tunnel restarts, so it is settable at runtime.
type Tunnel struct {
	mu   sync.RWMutex
	base string
	cli  *http.Client
}

func NewTunnel(baseURL string, cli *http.Client) *Tunnel {
	if cli == nil {
		cli = NewHTTPClient(10 * time.Second)
	}
	return &Tunnel{base: strings.TrimRight(baseURL, "/"), cli: cli}
}

func (t *Tunnel) Name() string   { return ProviderTunnel }
func (t *Tunnel) NeedsKey() bool { return false }

// SetBaseURL swaps the server address used by subsequent calls.
func (t *Tunnel) SetBaseURL(u string) {
	t.mu.Lock()
	t.base = strings.TrimRight(u, "/")
	t.mu.Unlock()
}

func (t *Tunnel) BaseURL() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.base
}

type tunnelResponse struct {
	Success bool   `json:"success"`
	Image   string `json:"image"`
	Error   string `json:"error"`
}

// GenerateImage ignores apiKey.
func (t *Tunnel) GenerateImage(ctx context.Context, _ string, prompt string) (GeneratedImage, error) {
	base := t.BaseURL()
	if base == "" {
		return GeneratedImage{}, &Error{Kind: KindTransient, Provider: ProviderTunnel, Msg: "no server url configured"}
	}
	var out tunnelResponse
	err := postJSON(ctx, t.cli, ProviderTunnel, base+"/generate_image", nil,
		map[string]string{"prompt": prompt}, &out,
		func(resp *http.Response, body []byte) error { return classifyStatus(ProviderTunnel, resp, body) })
	if err != nil {
		return GeneratedImage{}, err
	}
	if !out.Success {
		return GeneratedImage{}, &Error{Kind: KindTransient, Provider: ProviderTunnel, Msg: out.Error}
	}
	img, ok := parseDataURI(out.Image)
	if !ok {
		return GeneratedImage{}, malformed(ProviderTunnel, "image is not a base64 data uri")
	}
	return img, nil
}

func parseDataURI(s string) (GeneratedImage, bool) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return GeneratedImage{}, false
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok || data == "" {
		return GeneratedImage{}, false
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return GeneratedImage{}, false
	}
	return GeneratedImage{MIME: mime, Base64: data}, true
}
