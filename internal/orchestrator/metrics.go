package orchestrator

import "github.com/prometheus/client_golang/prometheus"

var (
	upstreamAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storyd",
			Subsystem: "upstream",
			Name:      "attempts_total",
			Help:      "Provider call attempts by outcome kind",
		},
		[]string{"provider", "outcome"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storyd",
			Subsystem: "upstream",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of single provider attempts in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"provider"},
	)

	rateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storyd",
			Subsystem: "ratelimit",
			Name:      "rejections_total",
			Help:      "Requests rejected by a local sliding window",
		},
		[]string{"service"},
	)

	keyCooldownsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storyd",
			Subsystem: "keys",
			Name:      "cooldowns_total",
			Help:      "API keys put into cooldown after a quota response",
		},
		[]string{"provider"},
	)

	frameCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storyd",
			Subsystem: "framecache",
			Name:      "lookups_total",
			Help:      "Frame cache lookups by result",
		},
		[]string{"result"},
	)

	imageWorkersBusy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "storyd",
			Subsystem: "images",
			Name:      "workers_busy",
			Help:      "Image generation slots currently held",
		},
	)
)

func init() {
	prometheus.MustRegister(upstreamAttemptsTotal, upstreamDuration, rateLimitRejectionsTotal,
		keyCooldownsTotal, frameCacheLookups, imageWorkersBusy)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return Classify(err).Kind
}
