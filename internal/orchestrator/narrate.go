package orchestrator

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"storyd/internal/upstream"
	"storyd/pkg/types"
)

const flowNarrate = "narrate"

// Narrate synthesizes the story text as MP3 speech.
func (o *Orchestrator) Narrate(ctx context.Context, req types.NarrateRequest) (types.Narration, error) {
	o.publish(StageReceived, flowNarrate, nil)
	ctx, span := o.startSpan(ctx, "orchestrator.Narrate")
	res, err := o.narrate(ctx, req)
	endSpan(span, err)
	o.finish(flowNarrate, err)
	return res, err
}

func (o *Orchestrator) narrate(ctx context.Context, req types.NarrateRequest) (types.Narration, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return types.Narration{}, ErrInvalidInput("No text provided")
	}
	if utf8.RuneCountInString(text) > maxNarrationRunes {
		return types.Narration{}, ErrInvalidInput("Text is too long")
	}
	lang := strings.TrimSpace(req.Lang)
	if lang == "" {
		lang = defaultNarrateLang
	}
	if !validLang(lang) {
		return types.Narration{}, ErrInvalidInput("Invalid language code")
	}
	if o.narrator == nil {
		return types.Narration{}, ErrNotConfigured(upstream.ProviderTTS)
	}
	if err := o.admit(ctx, ServiceTTS); err != nil {
		return types.Narration{}, err
	}
	o.publish(StageRateChecked, flowNarrate, nil)

	o.publish(StageUpstreamCalled, flowNarrate, map[string]any{"lang": lang})
	ctx, span := o.startSpan(ctx, "tts.synthesize", attribute.String("lang", lang), attribute.Int("text.runes", utf8.RuneCountInString(text)))
	audio, err := retryDo(ctx, o, upstream.ProviderTTS, o.ttsPlan, func(ctx context.Context) (upstream.Audio, error) {
		return o.narrator.Synthesize(ctx, text, lang)
	})
	endSpan(span, err)
	if err != nil {
		return types.Narration{}, o.withQuotaHint(err, nil)
	}
	return types.Narration{Success: true, Audio: audio.DataURI()}, nil
}

// validLang accepts short codes such as "en", "pt-BR" or "zh-CN".
func validLang(s string) bool {
	if len(s) < 2 || len(s) > 10 {
		return false
	}
	for _, r := range s {
		if !(r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}
