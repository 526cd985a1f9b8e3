// Package metrics exposes Prometheus instrumentation for the job layer
// and the translation cascade.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmitted counts accepted translation jobs.
	JobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jurico",
		Subsystem: "jobs",
		Name:      "submitted_total",
		Help:      "Number of translation jobs accepted.",
	})

	// JobsCompleted counts jobs by terminal state.
	JobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jurico",
		Subsystem: "jobs",
		Name:      "finished_total",
		Help:      "Number of translation jobs finished, by terminal state.",
	}, []string{"state"})

	// JobsInFlight tracks currently running jobs.
	JobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "jurico",
		Subsystem: "jobs",
		Name:      "in_flight",
		Help:      "Number of translation jobs currently running.",
	})

	// JobDuration observes wall-clock job duration.
	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "jurico",
		Subsystem: "jobs",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of finished translation jobs.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	// SegmentsResolved counts resolved segments by provenance source.
	SegmentsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jurico",
		Subsystem: "resolve",
		Name:      "segments_total",
		Help:      "Number of segments resolved, by provenance source.",
	}, []string{"source"})

	// DuplicateSubmissions counts submissions answered with an existing
	// job because the same content arrived inside the duplicate window.
	DuplicateSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jurico",
		Subsystem: "jobs",
		Name:      "duplicates_total",
		Help:      "Number of submissions deduplicated within the duplicate window.",
	})
)
