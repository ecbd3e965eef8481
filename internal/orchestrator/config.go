package orchestrator

import (
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"storyd/internal/framecache"
	"storyd/internal/keypool"
	"storyd/internal/ratelimit"
	"storyd/internal/retry"
)

// Rate limited services.
const (
	ServiceGemini    = "gemini"
	ServiceGlobal    = "global"
	ServiceStability = "stability"
	ServiceTTS       = "tts"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultGenre        = "fantasy"
	defaultStoryLength  = 500
	minStoryLength      = 50
	maxStoryLength      = 2000
	maxNarrationRunes   = 5000
	defaultNarrateLang  = "en"
	defaultImageWorkers = 4
	defaultKeyCooldown  = 60 * time.Second
	safePromptPrefix    = "family-friendly, child-appropriate, non-violent, cute, "
)

// Limit is one sliding window.
type Limit struct {
	Window time.Duration
	Max    int
}

// DefaultLimits returns the per-service windows used when none are configured.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		ServiceGemini:    {Window: 60 * time.Second, Max: 60},
		ServiceGlobal:    {Window: 60 * time.Second, Max: 60},
		ServiceStability: {Window: 60 * time.Second, Max: 50},
		ServiceTTS:       {Window: 60 * time.Second, Max: 60},
	}
}

// Default retry plans per provider.
var (
	DefaultGeminiPlan    = retry.PlanFromSeconds([]float64{0.5, 1, 2, 4, 8})
	DefaultStabilityPlan = retry.PlanFromSeconds([]float64{5, 10, 20, 30, 60})
	DefaultTTSPlan       = retry.PlanFromSeconds([]float64{1, 2, 4})
)

// Config encapsulates all tunables for Orchestrator construction.
type Config struct {
	Vision   VisionModel
	Story    StoryModel
	Images   ImageGenerator
	Narrator Narrator

	GeminiKeys []string
	ImageKeys  []string

	// Limiters overrides the in-memory windows built from DefaultLimits.
	Limiters *ratelimit.Set
	Cache    *framecache.Cache

	GeminiPlan retry.Plan
	ImagePlan  retry.Plan
	TTSPlan    retry.Plan
	// AttemptTimeout bounds each provider call; zero uses retry.DefaultAttemptTimeout.
	AttemptTimeout time.Duration
	ImageWorkers   int
	KeyCooldown    time.Duration

	// Debug enables the runtime image server URL setter.
	Debug bool

	Publisher EventPublisher
	Logger    *zerolog.Logger
	Tracer    trace.Tracer
	Now       func() time.Time
}

// NewWithConfig constructs an Orchestrator from Config. Providers left nil,
// or without keys when they need them, are reported as not configured.
func NewWithConfig(cfg Config) *Orchestrator {
	o := &Orchestrator{
		vision:   cfg.Vision,
		story:    cfg.Story,
		images:   cfg.Images,
		narrator: cfg.Narrator,
		limiters: cfg.Limiters,
		cache:    cfg.Cache,
		debug:    cfg.Debug,
		pub:      cfg.Publisher,
		tracer:   cfg.Tracer,
		now:      cfg.Now,
	}
	if o.now == nil {
		o.now = time.Now
	}
	o.log = zerolog.Nop()
	if cfg.Logger != nil {
		o.log = cfg.Logger.With().Str("component", "orchestrator").Logger()
	}
	if o.pub == nil {
		o.pub = noopPublisher{}
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("storyd/orchestrator")
	}
	if o.limiters == nil {
		o.limiters = NewMemoryLimiters(DefaultLimits(), o.now, o.limiterError)
	}
	if o.cache == nil {
		o.cache = framecache.New(framecache.Config{Now: o.now})
	}
	// keypool.New only fails on an empty list, which leaves the pool nil
	o.geminiKeys, _ = keypool.New(cfg.GeminiKeys, o.now)
	o.imageKeys, _ = keypool.New(cfg.ImageKeys, o.now)

	o.geminiPlan = orDefaultPlan(cfg.GeminiPlan, DefaultGeminiPlan)
	o.imagePlan = orDefaultPlan(cfg.ImagePlan, DefaultStabilityPlan)
	o.ttsPlan = orDefaultPlan(cfg.TTSPlan, DefaultTTSPlan)

	o.attemptTimeout = cfg.AttemptTimeout
	if o.attemptTimeout <= 0 {
		o.attemptTimeout = retry.DefaultAttemptTimeout
	}
	o.keyCooldown = cfg.KeyCooldown
	if o.keyCooldown <= 0 {
		o.keyCooldown = defaultKeyCooldown
	}
	workers := cfg.ImageWorkers
	if workers <= 0 {
		workers = defaultImageWorkers
	}
	o.workers = workers
	o.sem = semaphore.NewWeighted(int64(workers))
	o.startTime = o.now()
	return o
}

// NewMemoryLimiters builds an in-process window per service.
func NewMemoryLimiters(limits map[string]Limit, now func() time.Time, onError func(service string, err error)) *ratelimit.Set {
	set := ratelimit.NewSet(onError)
	for svc, l := range limits {
		set.Add(svc, ratelimit.NewWindow(l.Window, l.Max, now))
	}
	return set
}

func orDefaultPlan(p, def retry.Plan) retry.Plan {
	if len(p.Delays) == 0 {
		return def
	}
	return p
}
