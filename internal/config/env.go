package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides holds raw env values. Pointer fields stay nil when unset so
// file and default values survive.
type envOverrides struct {
	Addr       *string `env:"STORYD_ADDR"`
	Port       *string `env:"PORT"`
	LogLevel   *string `env:"STORYD_LOG_LEVEL"`
	LogFormat  *string `env:"STORYD_LOG_FORMAT"`
	RequestLog *string `env:"STORYD_REQUEST_LOG"`
	Debug      *bool   `env:"STORYD_DEBUG"`

	RequestTimeout *int64   `env:"STORYD_REQUEST_TIMEOUT_SECONDS"`
	MaxBodyBytes   *int64   `env:"STORYD_MAX_BODY_BYTES"`
	CORSEnabled    *bool    `env:"STORYD_CORS_ENABLED"`
	CORSOrigins    []string `env:"STORYD_CORS_ORIGINS" envSeparator:","`

	GeminiKeys   []string `env:"STORYD_GEMINI_KEYS" envSeparator:","`
	GoogleAPIKey string   `env:"GOOGLE_API_KEY"`

	ImageProvider *string  `env:"STORYD_IMAGE_PROVIDER"`
	ImageKeys     []string `env:"STORYD_STABILITY_KEYS" envSeparator:","`
	StabilityKey  string   `env:"STABILITY_API_KEY"`
	StabilityKey1 string   `env:"STABILITY_API_KEY_1"`
	StabilityKey2 string   `env:"STABILITY_API_KEY_2"`
	StabilityKey3 string   `env:"STABILITY_API_KEY_3"`
	TunnelURL     *string  `env:"STORYD_TUNNEL_URL"`
	ImageWorkers  *int     `env:"STORYD_IMAGE_WORKERS"`

	KeyCooldown *int `env:"STORYD_KEY_COOLDOWN_SECONDS"`

	LimitGlobal    limitEnv `envPrefix:"STORYD_LIMIT_GLOBAL_"`
	LimitGemini    limitEnv `envPrefix:"STORYD_LIMIT_GEMINI_"`
	LimitStability limitEnv `envPrefix:"STORYD_LIMIT_STABILITY_"`
	LimitTunnel    limitEnv `envPrefix:"STORYD_LIMIT_TUNNEL_"`
	LimitTTS       limitEnv `envPrefix:"STORYD_LIMIT_TTS_"`

	RetryGemini    []float64 `env:"STORYD_RETRY_GEMINI" envSeparator:","`
	RetryStability []float64 `env:"STORYD_RETRY_STABILITY" envSeparator:","`
	RetryTTS       []float64 `env:"STORYD_RETRY_TTS" envSeparator:","`
	AttemptTimeout *float64  `env:"STORYD_ATTEMPT_TIMEOUT_SECONDS"`

	CacheCapacity  *int     `env:"STORYD_CACHE_CAPACITY"`
	CacheThreshold *float64 `env:"STORYD_CACHE_THRESHOLD"`
	CacheBatch     *int     `env:"STORYD_CACHE_BATCH"`

	RedisAddr     *string `env:"STORYD_REDIS_ADDR"`
	RedisPassword *string `env:"STORYD_REDIS_PASSWORD"`
	OTLPEndpoint  *string `env:"STORYD_OTLP_ENDPOINT"`
}

// limitEnv is one rate window, read from <prefix>WINDOW_SECONDS and <prefix>MAX.
type limitEnv struct {
	WindowSeconds *int `env:"WINDOW_SECONDS"`
	Max           *int `env:"MAX"`
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	setString(&cfg.Addr, e.Addr)
	if e.Addr == nil && e.Port != nil && *e.Port != "" {
		cfg.Addr = ":" + strings.TrimPrefix(*e.Port, ":")
	}
	setString(&cfg.LogLevel, e.LogLevel)
	setString(&cfg.LogFormat, e.LogFormat)
	setString(&cfg.RequestLog, e.RequestLog)
	if e.Debug != nil {
		cfg.Debug = *e.Debug
	}

	if e.RequestTimeout != nil {
		cfg.HTTP.RequestTimeoutSeconds = *e.RequestTimeout
	}
	if e.MaxBodyBytes != nil {
		cfg.HTTP.MaxBodyBytes = *e.MaxBodyBytes
	}
	if e.CORSEnabled != nil {
		cfg.HTTP.CORS.Enabled = *e.CORSEnabled
	}
	if len(e.CORSOrigins) > 0 {
		cfg.HTTP.CORS.Origins = e.CORSOrigins
	}

	if len(e.GeminiKeys) > 0 {
		cfg.Gemini.Keys = e.GeminiKeys
	}
	cfg.Gemini.Keys = mergeKeys(cfg.Gemini.Keys, e.GoogleAPIKey)

	setString(&cfg.Images.Provider, e.ImageProvider)
	if len(e.ImageKeys) > 0 {
		cfg.Images.Keys = e.ImageKeys
	}
	cfg.Images.Keys = mergeKeys(cfg.Images.Keys, e.StabilityKey1, e.StabilityKey2, e.StabilityKey3, e.StabilityKey)
	setString(&cfg.Images.TunnelURL, e.TunnelURL)
	if e.ImageWorkers != nil {
		cfg.Images.Workers = *e.ImageWorkers
	}

	if e.KeyCooldown != nil {
		cfg.Images.KeyCooldownSeconds = *e.KeyCooldown
	}

	for svc, l := range map[string]limitEnv{
		"global":    e.LimitGlobal,
		"gemini":    e.LimitGemini,
		"stability": e.LimitStability,
		"tunnel":    e.LimitTunnel,
		"tts":       e.LimitTTS,
	} {
		applyLimit(cfg, svc, l)
	}

	if len(e.RetryGemini) > 0 {
		cfg.Retry.Gemini = e.RetryGemini
	}
	if len(e.RetryStability) > 0 {
		cfg.Retry.Stability = e.RetryStability
	}
	if len(e.RetryTTS) > 0 {
		cfg.Retry.TTS = e.RetryTTS
	}
	if e.AttemptTimeout != nil {
		cfg.Retry.AttemptTimeoutSeconds = *e.AttemptTimeout
	}

	if e.CacheCapacity != nil {
		cfg.Cache.Capacity = *e.CacheCapacity
	}
	if e.CacheThreshold != nil {
		cfg.Cache.Threshold = *e.CacheThreshold
	}
	if e.CacheBatch != nil {
		cfg.Cache.Batch = *e.CacheBatch
	}

	setString(&cfg.Redis.Addr, e.RedisAddr)
	setString(&cfg.Redis.Password, e.RedisPassword)
	setString(&cfg.Telemetry.Endpoint, e.OTLPEndpoint)
	return nil
}

// applyLimit sets the fields given for svc and keeps the rest of its window.
func applyLimit(cfg *Config, svc string, l limitEnv) {
	if l.WindowSeconds == nil && l.Max == nil {
		return
	}
	if cfg.Limits == nil {
		cfg.Limits = make(map[string]LimitConfig)
	}
	cur := cfg.Limits[svc]
	if l.WindowSeconds != nil {
		cur.WindowSeconds = *l.WindowSeconds
	}
	if l.Max != nil {
		cur.Max = *l.Max
	}
	cfg.Limits[svc] = cur
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// mergeKeys appends extra keys in order, skipping blanks and duplicates.
func mergeKeys(keys []string, extra ...string) []string {
	seen := make(map[string]bool, len(keys)+len(extra))
	var out []string
	for _, k := range append(append([]string(nil), keys...), extra...) {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
