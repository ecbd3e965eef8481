package orchestrator

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"storyd/internal/framecache"
	"storyd/internal/upstream"
	"storyd/pkg/types"
)

const flowFrame = "frame"

// GenerateFrame returns an illustration for prompt, from the cache when the
// same prompt was rendered recently.
func (o *Orchestrator) GenerateFrame(ctx context.Context, req types.FrameRequest) (types.Frame, error) {
	o.publish(StageReceived, flowFrame, nil)
	ctx, span := o.startSpan(ctx, "orchestrator.GenerateFrame")
	res, err := o.generateFrame(ctx, req)
	endSpan(span, err)
	o.finish(flowFrame, err)
	return res, err
}

func (o *Orchestrator) generateFrame(ctx context.Context, req types.FrameRequest) (types.Frame, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return types.Frame{}, ErrInvalidInput("No prompt provided")
	}
	if utf8.RuneCountInString(prompt) > maxPromptRunes {
		return types.Frame{}, ErrInvalidInput("Prompt is too long")
	}
	if !o.imagesConfigured() {
		return types.Frame{}, ErrNotConfigured("image generation")
	}
	provider := o.images.Name()
	if err := o.admit(ctx, ServiceGlobal); err != nil {
		return types.Frame{}, err
	}
	if err := o.admit(ctx, provider); err != nil {
		return types.Frame{}, err
	}
	o.publish(StageRateChecked, flowFrame, nil)

	key := framecache.Fingerprint(prompt)
	if img, ok := o.cache.Lookup(key); ok {
		frameCacheLookups.WithLabelValues("hit").Inc()
		o.publish(StageCacheChecked, flowFrame, map[string]any{"hit": true})
		return types.Frame{Success: true, Image: img, Cached: true}, nil
	}
	frameCacheLookups.WithLabelValues("miss").Inc()
	o.publish(StageCacheChecked, flowFrame, map[string]any{"hit": false})

	o.publish(StageUpstreamCalled, flowFrame, map[string]any{"provider": provider})
	img, err := o.renderFrame(ctx, provider, safePrompt(prompt))
	if err != nil {
		return types.Frame{}, o.withQuotaHint(err, o.imageKeys)
	}
	uri := img.DataURI()
	o.cache.Insert(key, uri)
	return types.Frame{Success: true, Image: uri, Cached: false}, nil
}

// renderFrame retries the image call. Each attempt holds one worker slot for
// the duration of the call only, so retry waits leave the slot free.
func (o *Orchestrator) renderFrame(ctx context.Context, provider, prompt string) (upstream.GeneratedImage, error) {
	ctx, span := o.startSpan(ctx, provider+".generate")
	call := func(ctx context.Context, key string) (upstream.GeneratedImage, error) {
		return o.images.GenerateImage(ctx, key, prompt)
	}
	attempt := func(ctx context.Context) (upstream.GeneratedImage, error) {
		return call(ctx, "")
	}
	if o.images.NeedsKey() {
		attempt = keyed(o, provider, o.imageKeys, call)
	}
	img, err := retryDo(ctx, o, provider, o.imagePlan, func(ctx context.Context) (upstream.GeneratedImage, error) {
		release, err := o.acquireWorker(ctx, provider)
		if err != nil {
			return upstream.GeneratedImage{}, err
		}
		defer release()
		return attempt(ctx)
	})
	endSpan(span, err)
	return img, err
}

func (o *Orchestrator) acquireWorker(ctx context.Context, provider string) (func(), error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &upstream.Error{Kind: upstream.KindTransient, Provider: provider, Msg: "image workers busy", Err: err}
		}
		return nil, err
	}
	imageWorkersBusy.Inc()
	return func() {
		imageWorkersBusy.Dec()
		o.sem.Release(1)
	}, nil
}
