package orchestrator

// Request lifecycle stages, published in order for every request.
const (
	StageReceived       = "received"
	StageRateChecked    = "rate_checked"
	StageCacheChecked   = "cache_checked"
	StageUpstreamCalled = "upstream_called"
	StageCompleted      = "completed"
	StageFailed         = "failed"
)

// Event represents one stage transition of a request.
// Minimal and stable: stage name + flow and optional fields via key/values.
type Event struct {
	Name   string
	Flow   string
	Fields map[string]any
}

// EventPublisher receives events from the orchestrator. Implementations should
// be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
