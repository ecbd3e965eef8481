package orchestrator

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"storyd/internal/upstream"
	"storyd/pkg/types"
)

const flowStory = "story"

// GenerateStory describes the uploaded image(s) and writes a story from the
// description. Input is validated before any quota is consumed.
func (o *Orchestrator) GenerateStory(ctx context.Context, req types.StoryRequest) (types.Story, error) {
	o.publish(StageReceived, flowStory, nil)
	ctx, span := o.startSpan(ctx, "orchestrator.GenerateStory")
	res, err := o.generateStory(ctx, req)
	endSpan(span, err)
	o.finish(flowStory, err)
	return res, err
}

func (o *Orchestrator) generateStory(ctx context.Context, req types.StoryRequest) (types.Story, error) {
	imgs, err := storyImages(req)
	if err != nil {
		return types.Story{}, err
	}
	genre := normalizeGenre(req.Genre)
	length := clampLength(req.Length)
	if !o.geminiConfigured() {
		return types.Story{}, ErrNotConfigured(upstream.ProviderGemini)
	}
	if err := o.admit(ctx, ServiceGemini); err != nil {
		return types.Story{}, err
	}
	o.publish(StageRateChecked, flowStory, map[string]any{"images": len(imgs), "genre": genre})

	o.publish(StageUpstreamCalled, flowStory, map[string]any{"stage": "vision"})
	desc, err := o.describeAll(ctx, genre, imgs)
	if err != nil {
		return types.Story{}, o.withQuotaHint(err, o.geminiKeys)
	}
	o.publish(StageUpstreamCalled, flowStory, map[string]any{"stage": "story"})
	story, err := o.writeStory(ctx, storyPrompt(genre, desc, length))
	if err != nil {
		return types.Story{}, o.withQuotaHint(err, o.geminiKeys)
	}
	return types.Story{Success: true, Story: story, ImageDescription: desc}, nil
}

func storyImages(req types.StoryRequest) ([]upstream.Image, error) {
	raw := req.Images
	if strings.TrimSpace(req.Image) != "" {
		raw = append([]string{req.Image}, raw...)
	}
	var out []upstream.Image
	for _, s := range raw {
		if strings.TrimSpace(s) == "" {
			continue
		}
		img, err := decodeImage(s)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	if len(out) == 0 {
		return nil, ErrInvalidInput("No image provided")
	}
	if len(out) > maxStoryImages {
		return nil, ErrInvalidInput("Too many images")
	}
	return out, nil
}

// describeAll runs one vision call per image, concurrently, and joins the
// descriptions in request order.
func (o *Orchestrator) describeAll(ctx context.Context, genre string, imgs []upstream.Image) (string, error) {
	if len(imgs) == 1 {
		return o.describe(ctx, genre, imgs[0])
	}
	descs := make([]string, len(imgs))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range imgs {
		g.Go(func() error {
			d, err := o.describe(gctx, genre, img)
			descs[i] = d
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(descs, "\n\n"), nil
}

func (o *Orchestrator) describe(ctx context.Context, genre string, img upstream.Image) (string, error) {
	ctx, span := o.startSpan(ctx, "gemini.describe", attribute.String("image.mime", img.MIME))
	prompt := visionPrompt(genre)
	op := keyed(o, upstream.ProviderGemini, o.geminiKeys, func(ctx context.Context, key string) (string, error) {
		return o.vision.Describe(ctx, key, prompt, []upstream.Image{img})
	})
	desc, err := retryDo(ctx, o, upstream.ProviderGemini, o.geminiPlan, op)
	endSpan(span, err)
	return desc, err
}

func (o *Orchestrator) writeStory(ctx context.Context, prompt string) (string, error) {
	ctx, span := o.startSpan(ctx, "gemini.write")
	op := keyed(o, upstream.ProviderGemini, o.geminiKeys, func(ctx context.Context, key string) (string, error) {
		return o.story.Write(ctx, key, prompt)
	})
	story, err := retryDo(ctx, o, upstream.ProviderGemini, o.geminiPlan, op)
	endSpan(span, err)
	return story, err
}
