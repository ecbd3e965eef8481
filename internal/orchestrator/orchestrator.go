package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"storyd/internal/framecache"
	"storyd/internal/keypool"
	"storyd/internal/ratelimit"
	"storyd/internal/retry"
)

// Orchestrator owns the limiters, key pools, cache and worker pool shared by
// all requests. It is safe for concurrent use.
type Orchestrator struct {
	vision   VisionModel
	story    StoryModel
	images   ImageGenerator
	narrator Narrator

	geminiKeys *keypool.Pool
	imageKeys  *keypool.Pool
	limiters   *ratelimit.Set
	cache      *framecache.Cache
	sem        *semaphore.Weighted
	workers    int

	geminiPlan     retry.Plan
	imagePlan      retry.Plan
	ttsPlan        retry.Plan
	attemptTimeout time.Duration
	keyCooldown    time.Duration

	debug     bool
	pub       EventPublisher
	log       zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
	startTime time.Time
}

// New constructs an Orchestrator with package defaults.
func New(vision VisionModel, story StoryModel, images ImageGenerator, narrator Narrator, geminiKeys, imageKeys []string) *Orchestrator {
	return NewWithConfig(Config{
		Vision:     vision,
		Story:      story,
		Images:     images,
		Narrator:   narrator,
		GeminiKeys: geminiKeys,
		ImageKeys:  imageKeys,
	})
}

// Cache exposes the frame cache, mainly for health and tests.
func (o *Orchestrator) Cache() *framecache.Cache { return o.cache }

// DebugEnabled reports whether debug-only operations are allowed.
func (o *Orchestrator) DebugEnabled() bool { return o.debug }

// Ready reports whether the story flow has everything it needs.
func (o *Orchestrator) Ready() bool {
	return o.geminiConfigured()
}

func (o *Orchestrator) geminiConfigured() bool {
	return o.vision != nil && o.story != nil && o.geminiKeys != nil
}

func (o *Orchestrator) imagesConfigured() bool {
	if o.images == nil {
		return false
	}
	return !o.images.NeedsKey() || o.imageKeys != nil
}

// admit runs one admission on the window of service.
func (o *Orchestrator) admit(ctx context.Context, service string) error {
	d := o.limiters.TryAdmit(ctx, service)
	if d.Allowed {
		return nil
	}
	rateLimitRejectionsTotal.WithLabelValues(service).Inc()
	o.log.Warn().Str("service", service).Dur("retry_after", d.RetryAfter).Msg("rate limit reached")
	return rateLimitedError{service: service, retryAfter: d.RetryAfter}
}

func (o *Orchestrator) limiterError(service string, err error) {
	o.log.Error().Err(err).Str("service", service).Msg("rate limiter backend failed, admitting")
}

func (o *Orchestrator) publish(stage, flow string, fields map[string]any) {
	o.pub.Publish(Event{Name: stage, Flow: flow, Fields: fields})
}

// finish publishes the terminal stage and logs unexpected failures in full.
func (o *Orchestrator) finish(flow string, err error) {
	if err == nil {
		o.publish(StageCompleted, flow, nil)
		return
	}
	f := Classify(err)
	o.publish(StageFailed, flow, map[string]any{"kind": f.Kind, "status": f.Status})
	if f.Status >= 500 {
		o.log.Error().Err(err).Str("flow", flow).Str("kind", f.Kind).Msg("request failed")
	} else {
		o.log.Info().Err(err).Str("flow", flow).Str("kind", f.Kind).Msg("request rejected")
	}
}

func (o *Orchestrator) retryOptions(provider string) []retry.Option {
	return []retry.Option{
		retry.WithAttemptTimeout(o.attemptTimeout),
		retry.WithNotify(func(attempt int, err error, wait time.Duration) {
			o.log.Warn().Err(err).Str("provider", provider).Int("attempt", attempt).
				Dur("wait", wait).Msg("upstream attempt failed, retrying")
		}),
	}
}

// observed records duration and outcome of every attempt of op.
func observed[T any](provider string, op func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		start := time.Now()
		v, err := op(ctx)
		upstreamDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
		upstreamAttemptsTotal.WithLabelValues(provider, outcomeLabel(err)).Inc()
		return v, err
	}
}

func (o *Orchestrator) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Classify(err).Kind)
	}
	span.End()
}
