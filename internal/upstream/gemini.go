package upstream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	ProviderGemini        = "gemini"
	DefaultGeminiBaseURL  = "https://generativelanguage.googleapis.com"
	DefaultVisionModel    = "gemini-1.5-pro"
	DefaultStoryModel     = "gemini-pro"
	geminiSafetyThreshold = "BLOCK_MEDIUM_AND_ABOVE"
)

var geminiHarmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// GenerationConfig holds sampling parameters sent with every Gemini call.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// DefaultGenerationConfig mirrors the demo's tuned sampling settings.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{Temperature: 0.7, TopP: 0.8, TopK: 40, MaxOutputTokens: 8192}
}

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	BaseURL     string
	VisionModel string
	StoryModel  string
	Generation  GenerationConfig
	Client      *http.Client
}

// Gemini calls the generateContent REST endpoint for both image
// description and story writing.
type Gemini struct {
	base        string
	visionModel string
	storyModel  string
	gen         GenerationConfig
	cli         *http.Client
}

// NewGemini applies defaults to unset fields.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = DefaultVisionModel
	}
	if cfg.StoryModel == "" {
		cfg.StoryModel = DefaultStoryModel
	}
	if cfg.Generation == (GenerationConfig{}) {
		cfg.Generation = DefaultGenerationConfig()
	}
	if cfg.Client == nil {
		cfg.Client = NewHTTPClient(10 * time.Second)
	}
	return &Gemini{
		base:        strings.TrimRight(cfg.BaseURL, "/"),
		visionModel: cfg.VisionModel,
		storyModel:  cfg.StoryModel,
		gen:         cfg.Generation,
		cli:         cfg.Client,
	}
}

type geminiInline struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *geminiInline `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSafety struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	SafetySettings   []geminiSafety   `json:"safetySettings"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Describe asks the vision model to describe images for the given prompt.
func (g *Gemini) Describe(ctx context.Context, apiKey, prompt string, images []Image) (string, error) {
	parts := []geminiPart{{Text: prompt}}
	for _, img := range images {
		parts = append(parts, geminiPart{InlineData: &geminiInline{
			MimeType: img.MIME,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	return g.generate(ctx, apiKey, g.visionModel, parts)
}

// Write asks the text model for a story from prompt.
func (g *Gemini) Write(ctx context.Context, apiKey, prompt string) (string, error) {
	return g.generate(ctx, apiKey, g.storyModel, []geminiPart{{Text: prompt}})
}

func (g *Gemini) generate(ctx context.Context, apiKey, model string, parts []geminiPart) (string, error) {
	if apiKey == "" {
		return "", &Error{Kind: KindUnexpected, Provider: ProviderGemini, Msg: "missing api key"}
	}
	req := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: g.gen,
	}
	for _, c := range geminiHarmCategories {
		req.SafetySettings = append(req.SafetySettings, geminiSafety{Category: c, Threshold: geminiSafetyThreshold})
	}
	endpoint := g.base + "/v1beta/models/" + url.PathEscape(model) + ":generateContent"
	var out geminiResponse
	err := postJSON(ctx, g.cli, ProviderGemini, endpoint,
		map[string]string{"x-goog-api-key": apiKey}, req, &out, geminiStatusError)
	if err != nil {
		return "", err
	}
	if r := out.PromptFeedback.BlockReason; r != "" {
		return "", ErrContentPolicy(ProviderGemini, "prompt blocked: "+r)
	}
	if len(out.Candidates) == 0 {
		return "", malformed(ProviderGemini, "no candidates in response")
	}
	cand := out.Candidates[0]
	switch cand.FinishReason {
	case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST", "SPII":
		return "", ErrContentPolicy(ProviderGemini, "response blocked: "+cand.FinishReason)
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", malformed(ProviderGemini, "empty response text")
	}
	return text, nil
}

// geminiStatusError refines the status classification with the structured
// error status Google returns alongside the HTTP code.
func geminiStatusError(resp *http.Response, body []byte) error {
	e := classifyStatus(ProviderGemini, resp, body)
	var eb geminiErrorBody
	if json.Unmarshal(body, &eb) != nil || eb.Error.Status == "" {
		return e
	}
	e.Msg = eb.Error.Message
	switch eb.Error.Status {
	case "RESOURCE_EXHAUSTED":
		e.Kind = KindQuotaExceeded
	case "UNAVAILABLE", "DEADLINE_EXCEEDED", "INTERNAL":
		e.Kind = KindTransient
	case "PERMISSION_DENIED", "UNAUTHENTICATED":
		e.Kind = KindUnexpected
	}
	return e
}
