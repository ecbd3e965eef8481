// Package config loads storyd settings: built-in defaults, then an optional
// file (.yaml/.yml, .json, .toml), then environment overrides.
package config

import "strings"

// Config holds runtime parameters for the service. Durations are seconds.
type Config struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel   string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat  string `json:"log_format" yaml:"log_format" toml:"log_format"`
	RequestLog string `json:"request_log" yaml:"request_log" toml:"request_log"`
	Debug      bool   `json:"debug" yaml:"debug" toml:"debug"`

	HTTP      HTTPConfig             `json:"http" yaml:"http" toml:"http"`
	Limits    map[string]LimitConfig `json:"limits" yaml:"limits" toml:"limits"`
	Retry     RetryConfig            `json:"retry" yaml:"retry" toml:"retry"`
	Cache     CacheConfig            `json:"cache" yaml:"cache" toml:"cache"`
	Gemini    GeminiConfig           `json:"gemini" yaml:"gemini" toml:"gemini"`
	Images    ImagesConfig           `json:"images" yaml:"images" toml:"images"`
	TTS       TTSConfig              `json:"tts" yaml:"tts" toml:"tts"`
	Redis     RedisConfig            `json:"redis" yaml:"redis" toml:"redis"`
	Telemetry TelemetryConfig        `json:"telemetry" yaml:"telemetry" toml:"telemetry"`
}

type HTTPConfig struct {
	RequestTimeoutSeconds  int64      `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`
	MaxBodyBytes           int64      `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	ShutdownTimeoutSeconds int        `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds" toml:"shutdown_timeout_seconds"`
	CORS                   CORSConfig `json:"cors" yaml:"cors" toml:"cors"`
}

type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// LimitConfig is one sliding window: at most Max requests per WindowSeconds.
type LimitConfig struct {
	WindowSeconds int `json:"window_seconds" yaml:"window_seconds" toml:"window_seconds"`
	Max           int `json:"max" yaml:"max" toml:"max"`
}

// RetryConfig lists the waits after each failed attempt, per provider.
type RetryConfig struct {
	Gemini                []float64 `json:"gemini" yaml:"gemini" toml:"gemini"`
	Stability             []float64 `json:"stability" yaml:"stability" toml:"stability"`
	TTS                   []float64 `json:"tts" yaml:"tts" toml:"tts"`
	AttemptTimeoutSeconds float64   `json:"attempt_timeout_seconds" yaml:"attempt_timeout_seconds" toml:"attempt_timeout_seconds"`
}

// CacheConfig sizes the frame cache. Threshold is the fill fraction at
// which the oldest Batch entries are evicted.
type CacheConfig struct {
	Capacity  int     `json:"capacity" yaml:"capacity" toml:"capacity"`
	Threshold float64 `json:"threshold" yaml:"threshold" toml:"threshold"`
	Batch     int     `json:"batch" yaml:"batch" toml:"batch"`
}

type GeminiConfig struct {
	Keys        []string `json:"keys" yaml:"keys" toml:"keys"`
	BaseURL     string   `json:"base_url" yaml:"base_url" toml:"base_url"`
	VisionModel string   `json:"vision_model" yaml:"vision_model" toml:"vision_model"`
	StoryModel  string   `json:"story_model" yaml:"story_model" toml:"story_model"`
}

// ImagesConfig selects the frame generator: "stability" (keyed) or
// "tunnel" (a self-hosted server reached through TunnelURL).
type ImagesConfig struct {
	Provider           string   `json:"provider" yaml:"provider" toml:"provider"`
	Keys               []string `json:"keys" yaml:"keys" toml:"keys"`
	BaseURL            string   `json:"base_url" yaml:"base_url" toml:"base_url"`
	Engine             string   `json:"engine" yaml:"engine" toml:"engine"`
	TunnelURL          string   `json:"tunnel_url" yaml:"tunnel_url" toml:"tunnel_url"`
	Workers            int      `json:"workers" yaml:"workers" toml:"workers"`
	KeyCooldownSeconds int      `json:"key_cooldown_seconds" yaml:"key_cooldown_seconds" toml:"key_cooldown_seconds"`
}

type TTSConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url"`
}

// RedisConfig enables shared rate windows when Addr is set.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr" toml:"addr"`
	Password string `json:"password" yaml:"password" toml:"password"`
	DB       int    `json:"db" yaml:"db" toml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix" toml:"prefix"`
}

// TelemetryConfig enables OTLP trace export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint    string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	ServiceName string `json:"service_name" yaml:"service_name" toml:"service_name"`
}

// Image providers.
const (
	ProviderStability = "stability"
	ProviderTunnel    = "tunnel"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:       ":5000",
		LogLevel:   "info",
		LogFormat:  "console",
		RequestLog: "info",
		HTTP: HTTPConfig{
			MaxBodyBytes:           16 << 20,
			ShutdownTimeoutSeconds: 5,
			CORS: CORSConfig{
				Enabled: true,
				Origins: []string{"*"},
				Methods: []string{"GET", "POST", "OPTIONS"},
				Headers: []string{"Content-Type", "Authorization", "X-Request-Id", "X-Log-Level"},
			},
		},
		Limits: map[string]LimitConfig{
			"gemini":    {WindowSeconds: 60, Max: 60},
			"global":    {WindowSeconds: 60, Max: 60},
			"stability": {WindowSeconds: 60, Max: 50},
			"tts":       {WindowSeconds: 60, Max: 60},
		},
		Retry: RetryConfig{
			Gemini:                []float64{0.5, 1, 2, 4, 8},
			Stability:             []float64{5, 10, 20, 30, 60},
			TTS:                   []float64{1, 2, 4},
			AttemptTimeoutSeconds: 30,
		},
		Cache: CacheConfig{Capacity: 100, Threshold: 0.8, Batch: 20},
		Gemini: GeminiConfig{
			BaseURL:     "https://generativelanguage.googleapis.com",
			VisionModel: "gemini-1.5-pro",
			StoryModel:  "gemini-pro",
		},
		Images: ImagesConfig{
			Provider:           ProviderStability,
			BaseURL:            "https://api.stability.ai",
			Engine:             "stable-diffusion-v1-6",
			Workers:            4,
			KeyCooldownSeconds: 60,
		},
		TTS:       TTSConfig{BaseURL: "https://translate.google.com"},
		Redis:     RedisConfig{Prefix: "storyd:ratelimit:"},
		Telemetry: TelemetryConfig{ServiceName: "storyd"},
	}
}

// Redacted returns a copy safe to print: API keys and the Redis password
// are masked.
func (c Config) Redacted() Config {
	out := c
	out.Gemini.Keys = maskAll(c.Gemini.Keys)
	out.Images.Keys = maskAll(c.Images.Keys)
	if c.Redis.Password != "" {
		out.Redis.Password = "****"
	}
	return out
}

func maskAll(keys []string) []string {
	if keys == nil {
		return nil
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		if len(k) <= 4 {
			out[i] = "****"
			continue
		}
		out[i] = k[:4] + strings.Repeat("*", 4)
	}
	return out
}
