// Package upstream contains one boundary adapter per AI provider. Adapters
// speak the provider's HTTP contract and translate every failure into an
// *Error carrying a Kind, so nothing above this package inspects raw
// provider messages.
package upstream

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of a provider body is read.
const maxResponseBytes = 32 << 20

// Image is an input image handed to a vision model.
type Image struct {
	MIME string
	Data []byte
}

// GeneratedImage is the single adapter contract for image generators:
// prompt in, base64 image out.
type GeneratedImage struct {
	MIME   string
	Base64 string
}

// DataURI renders the image for direct use in an <img> tag.
func (g GeneratedImage) DataURI() string {
	mime := g.MIME
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + g.Base64
}

// Audio is synthesized speech.
type Audio struct {
	MIME string
	Data []byte
}

// DataURI renders the audio for an <audio> element.
func (a Audio) DataURI() string {
	return "data:" + a.MIME + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// NewHTTPClient builds the shared client for provider calls. Timeout stays 0:
// every request carries its own context deadline.
func NewHTTPClient(connectTimeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: tr, Timeout: 0}
}

// postJSON sends payload and decodes a 2xx body into out. Non-2xx responses
// are passed to onStatus, which must return a classified error.
func postJSON(ctx context.Context, cli *http.Client, provider, url string, headers map[string]string, payload, out any, onStatus func(*http.Response, []byte) error) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return malformed(provider, "encode request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return malformed(provider, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := cli.Do(req)
	if err != nil {
		return classifyTransport(ctx, provider, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return classifyTransport(ctx, provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return onStatus(resp, b)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return malformed(provider, "decode response: %v", err)
	}
	return nil
}
