package orchestrator

import (
	"net/url"
	"strings"
)

// SetImageURL points a self-hosted image generator at a new address. It is
// only available in debug mode.
func (o *Orchestrator) SetImageURL(raw string) (string, error) {
	if !o.debug {
		return "", ErrNotConfigured("debug mode")
	}
	setter, ok := o.images.(BaseURLSetter)
	if !ok {
		return "", ErrNotConfigured("image server url")
	}
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidInput("URL must be an absolute http(s) address")
	}
	setter.SetBaseURL(raw)
	o.log.Info().Str("url", setter.BaseURL()).Msg("image server url updated")
	return setter.BaseURL(), nil
}
