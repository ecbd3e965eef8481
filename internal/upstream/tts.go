package upstream

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	ProviderTTS       = "tts"
	DefaultTTSBaseURL = "https://translate.google.com"
	// ttsChunkRunes is the longest text the translate endpoint accepts per call.
	ttsChunkRunes = 100
)

// Speech synthesizes narration through the translate text-to-speech
// endpoint. Long text is split at word boundaries and the MP3 pieces are
// concatenated, which players handle as one stream.
type Speech struct {
	base string
	cli  *http.Client
}

func NewSpeech(baseURL string, cli *http.Client) *Speech {
	if baseURL == "" {
		baseURL = DefaultTTSBaseURL
	}
	if cli == nil {
		cli = NewHTTPClient(10 * time.Second)
	}
	return &Speech{base: strings.TrimRight(baseURL, "/"), cli: cli}
}

// Synthesize returns MP3 audio for text in lang.
func (s *Speech) Synthesize(ctx context.Context, text, lang string) (Audio, error) {
	if lang == "" {
		lang = "en"
	}
	chunks := splitChunks(text, ttsChunkRunes)
	if len(chunks) == 0 {
		return Audio{}, &Error{Kind: KindInvalidInput, Provider: ProviderTTS, Msg: "no text to speak"}
	}
	var buf bytes.Buffer
	for i, c := range chunks {
		if err := s.fetch(ctx, &buf, c, lang, i, len(chunks)); err != nil {
			return Audio{}, err
		}
	}
	return Audio{MIME: "audio/mpeg", Data: buf.Bytes()}, nil
}

func (s *Speech) fetch(ctx context.Context, w io.Writer, text, lang string, idx, total int) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("q", text)
	q.Set("tl", lang)
	q.Set("idx", strconv.Itoa(idx))
	q.Set("total", strconv.Itoa(total))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(text)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/translate_tts?"+q.Encode(), nil)
	if err != nil {
		return malformed(ProviderTTS, "build request: %v", err)
	}
	resp, err := s.cli.Do(req)
	if err != nil {
		return classifyTransport(ctx, ProviderTTS, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classifyStatus(ProviderTTS, resp, b)
	}
	if _, err := io.Copy(w, io.LimitReader(resp.Body, maxResponseBytes)); err != nil {
		return classifyTransport(ctx, ProviderTTS, err)
	}
	return nil
}

// splitChunks breaks text into pieces of at most max runes, preferring word
// boundaries and hard-splitting words that are longer than max.
func splitChunks(text string, max int) []string {
	var out []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	for _, word := range strings.Fields(text) {
		for utf8.RuneCountInString(word) > max {
			flush()
			r := []rune(word)
			out = append(out, string(r[:max]))
			word = string(r[max:])
		}
		n := utf8.RuneCountInString(word)
		if curLen > 0 && curLen+1+n > max {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += n
	}
	flush()
	return out
}
