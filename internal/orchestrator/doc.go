// Package orchestrator turns story, frame and narration requests into
// upstream provider calls. It is structured into small files by concern:
//
//   - orchestrator.go: Orchestrator type, constructor wiring, tracing helpers.
//   - config.go: Config and package defaults; NewWithConfig applies defaults.
//   - adapter_iface.go: provider contracts implemented by internal/upstream.
//   - errors.go: error types, predicates and Classify for HTTP mapping.
//   - keys.go: key rotation and cooldown around a single attempt.
//   - image.go: decoding and sniffing of uploaded images.
//   - themes.go: genre themes and prompt builders.
//   - story.go, frame.go, narrate.go: the three request flows.
//   - status_report.go: Health reporting.
//   - events.go, eventpub_memory.go, eventpub_log.go: lifecycle events.
//   - metrics.go: Prometheus collectors for upstream calls and the cache.
//
// Every flow follows the same steps: validate, admit through the rate
// limiters, consult the frame cache (frames only), then call the provider
// through the retry controller with a rotated key.
package orchestrator
