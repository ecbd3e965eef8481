package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"storyd/internal/config"
	"storyd/internal/framecache"
	"storyd/internal/orchestrator"
	"storyd/internal/ratelimit"
	"storyd/internal/retry"
	"storyd/internal/upstream"
)

// buildOrchestrator wires adapters, limiters and caches from cfg. The
// returned func releases shared connections.
func buildOrchestrator(cfg config.Config, logger zerolog.Logger) (*orchestrator.Orchestrator, func(), error) {
	cli := upstream.NewHTTPClient(10 * time.Second)

	images, err := buildImageGenerator(cfg.Images, cli)
	if err != nil {
		return nil, nil, err
	}
	gemini := upstream.NewGemini(upstream.GeminiConfig{
		BaseURL:     cfg.Gemini.BaseURL,
		VisionModel: cfg.Gemini.VisionModel,
		StoryModel:  cfg.Gemini.StoryModel,
		Client:      cli,
	})

	limiterErr := func(service string, err error) {
		logger.Warn().Err(err).Str("service", service).Msg("rate limiter backend failed, admitting")
	}
	limiters, closeLimiters, err := buildLimiters(cfg, limiterErr)
	if err != nil {
		return nil, nil, err
	}

	var imageKeys []string
	if images.NeedsKey() {
		imageKeys = cfg.Images.Keys
	}
	orch := orchestrator.NewWithConfig(orchestrator.Config{
		Vision:         gemini,
		Story:          gemini,
		Images:         images,
		Narrator:       upstream.NewSpeech(cfg.TTS.BaseURL, cli),
		GeminiKeys:     cfg.Gemini.Keys,
		ImageKeys:      imageKeys,
		Limiters:       limiters,
		Cache:          framecache.New(framecache.Config{Capacity: cfg.Cache.Capacity, Threshold: cfg.Cache.Threshold, Batch: cfg.Cache.Batch}),
		GeminiPlan:     retry.PlanFromSeconds(cfg.Retry.Gemini),
		ImagePlan:      retry.PlanFromSeconds(cfg.Retry.Stability),
		TTSPlan:        retry.PlanFromSeconds(cfg.Retry.TTS),
		AttemptTimeout: time.Duration(cfg.Retry.AttemptTimeoutSeconds * float64(time.Second)),
		ImageWorkers:   cfg.Images.Workers,
		KeyCooldown:    time.Duration(cfg.Images.KeyCooldownSeconds) * time.Second,
		Debug:          cfg.Debug,
		Publisher:      orchestrator.NewLogPublisher(logger),
		Logger:         &logger,
	})
	return orch, closeLimiters, nil
}

// buildImageGenerator selects the frame provider.
func buildImageGenerator(cfg config.ImagesConfig, cli *http.Client) (orchestrator.ImageGenerator, error) {
	switch cfg.Provider {
	case config.ProviderStability, "":
		return upstream.NewStability(upstream.StabilityConfig{BaseURL: cfg.BaseURL, Engine: cfg.Engine, Client: cli}), nil
	case config.ProviderTunnel:
		return upstream.NewTunnel(cfg.TunnelURL, cli), nil
	default:
		return nil, fmt.Errorf("unknown image provider %q", cfg.Provider)
	}
}

// buildLimiters returns in-process windows, or Redis-backed windows shared
// across replicas when a Redis address is configured.
func buildLimiters(cfg config.Config, onError func(string, error)) (*ratelimit.Set, func(), error) {
	limits := make(map[string]orchestrator.Limit, len(cfg.Limits))
	for svc, l := range cfg.Limits {
		limits[svc] = orchestrator.Limit{Window: time.Duration(l.WindowSeconds) * time.Second, Max: l.Max}
	}
	if cfg.Redis.Addr == "" {
		return orchestrator.NewMemoryLimiters(limits, nil, onError), func() {}, nil
	}
	client, err := ratelimit.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	set, err := redisLimiters(client, cfg.Redis.Prefix, limits, onError)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// windows fail open, so keep serving
		onError("redis", err)
	}
	return set, func() { _ = client.Close() }, nil
}

func redisLimiters(client redis.Scripter, prefix string, limits map[string]orchestrator.Limit, onError func(string, error)) (*ratelimit.Set, error) {
	set := ratelimit.NewSet(onError)
	for svc, l := range limits {
		w, err := ratelimit.NewRedisWindow(client, prefix+svc, l.Window, l.Max, nil)
		if err != nil {
			return nil, fmt.Errorf("limiter %s: %w", svc, err)
		}
		set.Add(svc, w)
	}
	return set, nil
}
