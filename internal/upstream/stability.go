package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	ProviderStability       = "stability"
	DefaultStabilityBaseURL = "https://api.stability.ai"
	DefaultStabilityEngine  = "stable-diffusion-v1-6"
)

// StabilityParams are the generation knobs sent with each request.
type StabilityParams struct {
	CFGScale    float64 `json:"cfg_scale"`
	Height      int     `json:"height"`
	Width       int     `json:"width"`
	Samples     int     `json:"samples"`
	Steps       int     `json:"steps"`
	StylePreset string  `json:"style_preset,omitempty"`
}

// DefaultStabilityParams returns small, fast frames suited to stop-motion playback.
func DefaultStabilityParams() StabilityParams {
	return StabilityParams{CFGScale: 6, Height: 320, Width: 320, Samples: 1, Steps: 15, StylePreset: "digital-art"}
}

type StabilityConfig struct {
	BaseURL string
	Engine  string
	Params  StabilityParams
	Client  *http.Client
}

// Stability generates images with the v1 text-to-image endpoint.
type Stability struct {
	base   string
	engine string
	params StabilityParams
	cli    *http.Client
}

func NewStability(cfg StabilityConfig) *Stability {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultStabilityBaseURL
	}
	if cfg.Engine == "" {
		cfg.Engine = DefaultStabilityEngine
	}
	if cfg.Params == (StabilityParams{}) {
		cfg.Params = DefaultStabilityParams()
	}
	if cfg.Client == nil {
		cfg.Client = NewHTTPClient(10 * time.Second)
	}
	return &Stability{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		engine: cfg.Engine,
		params: cfg.Params,
		cli:    cfg.Client,
	}
}

func (s *Stability) Name() string   { return ProviderStability }
func (s *Stability) NeedsKey() bool { return true }

type stabilityPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type stabilityRequest struct {
	TextPrompts []stabilityPrompt `json:"text_prompts"`
	StabilityParams
}

type stabilityResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		FinishReason string `json:"finishReason"`
	} `json:"artifacts"`
}

type stabilityErrorBody struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// GenerateImage renders prompt and returns the first artifact.
func (s *Stability) GenerateImage(ctx context.Context, apiKey, prompt string) (GeneratedImage, error) {
	if apiKey == "" {
		return GeneratedImage{}, &Error{Kind: KindUnexpected, Provider: ProviderStability, Msg: "missing api key"}
	}
	req := stabilityRequest{
		TextPrompts:     []stabilityPrompt{{Text: prompt, Weight: 1}},
		StabilityParams: s.params,
	}
	endpoint := s.base + "/v1/generation/" + url.PathEscape(s.engine) + "/text-to-image"
	var out stabilityResponse
	err := postJSON(ctx, s.cli, ProviderStability, endpoint,
		map[string]string{"Authorization": "Bearer " + apiKey}, req, &out, stabilityStatusError)
	if err != nil {
		return GeneratedImage{}, err
	}
	if len(out.Artifacts) == 0 {
		return GeneratedImage{}, malformed(ProviderStability, "no artifacts in response")
	}
	art := out.Artifacts[0]
	if art.FinishReason == "CONTENT_FILTERED" {
		return GeneratedImage{}, ErrContentPolicy(ProviderStability, "image filtered")
	}
	if art.Base64 == "" {
		return GeneratedImage{}, malformed(ProviderStability, "empty artifact")
	}
	return GeneratedImage{MIME: "image/png", Base64: art.Base64}, nil
}

func stabilityStatusError(resp *http.Response, body []byte) error {
	e := classifyStatus(ProviderStability, resp, body)
	var eb stabilityErrorBody
	if json.Unmarshal(body, &eb) != nil || eb.Name == "" {
		return e
	}
	e.Msg = eb.Message
	switch eb.Name {
	case "invalid_prompts":
		e.Kind = KindContentPolicy
	case "insufficient_balance":
		e.Kind = KindQuotaExceeded
	}
	return e
}
