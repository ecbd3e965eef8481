package types

// ErrorResponse is the consistent JSON failure payload.
type ErrorResponse struct {
	Success bool `json:"success"`
	// Caller-visible message.
	// example: No image provided
	Error string `json:"error" example:"No image provided"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Failure kind (invalid_input, rate_limited, quota_exceeded, upstream_transient, content_policy, unexpected).
	// example: invalid_input
	Kind string `json:"kind,omitempty" example:"invalid_input"`
	// Seconds until a retry may succeed.
	// example: 30
	RetryAfter int `json:"retry_after,omitempty" example:"30"`
	// Set on frame quota failures so the UI stops the animation loop.
	DisableStopMotion bool `json:"disable_stop_motion,omitempty"`
}

// ServiceHealth details one provider: configuration, key availability and
// cooldown status.
type ServiceHealth struct {
	Configured bool `json:"configured"`
	// Usable keys right now; omitted for providers without keys.
	AvailableKeys *int `json:"available_keys,omitempty"`
	TotalKeys     *int `json:"total_keys,omitempty"`
	// example: active
	Status string `json:"status" example:"active"`
}

// CacheHealth summarizes the frame cache.
type CacheHealth struct {
	Entries  int    `json:"entries"`
	Capacity int    `json:"capacity"`
	Hits     int64  `json:"hits"`
	Misses   int64  `json:"misses"`
	Evicted  uint64 `json:"evicted"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// Provider name to whether it is configured. The image provider in use
	// is always listed.
	Services map[string]bool `json:"services"`
	// Per-provider key counts and status.
	Providers map[string]ServiceHealth `json:"providers"`
	Cache     CacheHealth              `json:"cache"`
	// Image generator in use (stability or tunnel).
	// example: stability
	ImageProvider string `json:"image_provider" example:"stability"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}
