package orchestrator

import "github.com/rs/zerolog"

// LogPublisher writes events as debug lines.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(l zerolog.Logger) *LogPublisher { return &LogPublisher{log: l} }

func (p *LogPublisher) Publish(e Event) {
	ev := p.log.Debug().Str("stage", e.Name).Str("flow", e.Flow)
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("orchestrator event")
}
