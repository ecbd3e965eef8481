package orchestrator

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"storyd/internal/upstream"
)

const (
	maxImageBytes  = 10 << 20
	maxImagePixels = 40_000_000
	maxStoryImages = 8
	maxPromptRunes = 2000
)

// visionMIMEs are the formats the vision model accepts.
var visionMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// decodeImage accepts raw base64 or a data URI and returns the payload with
// its sniffed type. The declared data URI type is ignored.
func decodeImage(s string) (upstream.Image, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		_, payload, found := strings.Cut(rest, ",")
		if !found {
			return upstream.Image{}, ErrInvalidInput("Invalid image data")
		}
		s = payload
	}
	if base64.StdEncoding.DecodedLen(len(s)) > maxImageBytes {
		return upstream.Image{}, ErrInvalidInput("Image is too large")
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// some clients strip padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil || len(data) == 0 {
		return upstream.Image{}, ErrInvalidInput("Invalid image data")
	}
	mt := mimetype.Detect(data)
	mime := mt.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if !visionMIMEs[mime] {
		return upstream.Image{}, ErrInvalidInput("Unsupported image type: " + mime)
	}
	// formats with a registered decoder are checked for a sane header
	switch mime {
	case "image/jpeg", "image/png", "image/gif":
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
			return upstream.Image{}, ErrInvalidInput("Invalid image data")
		}
		if cfg.Width*cfg.Height > maxImagePixels {
			return upstream.Image{}, ErrInvalidInput("Image dimensions are too large")
		}
	}
	return upstream.Image{MIME: mime, Data: data}, nil
}
