package orchestrator

import (
	"context"

	"storyd/internal/upstream"
)

// VisionModel describes images. apiKey is chosen per attempt by the key pool.
type VisionModel interface {
	Describe(ctx context.Context, apiKey, prompt string, images []upstream.Image) (string, error)
}

// StoryModel writes text from a prompt.
type StoryModel interface {
	Write(ctx context.Context, apiKey, prompt string) (string, error)
}

// ImageGenerator renders one frame for a prompt. Providers that do not use
// credentials report NeedsKey false and receive an empty apiKey.
type ImageGenerator interface {
	Name() string
	NeedsKey() bool
	GenerateImage(ctx context.Context, apiKey, prompt string) (upstream.GeneratedImage, error)
}

// Narrator synthesizes speech.
type Narrator interface {
	Synthesize(ctx context.Context, text, lang string) (upstream.Audio, error)
}

// BaseURLSetter is implemented by image generators whose address can change
// at runtime.
type BaseURLSetter interface {
	SetBaseURL(u string)
	BaseURL() string
}
