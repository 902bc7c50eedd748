package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vitalstack/vitals-engine/internal/models"
)

const (
	// OutcomeAccepted labels records folded into an aggregate.
	OutcomeAccepted = "accepted"
	// OutcomeDropped labels malformed records discarded by the aggregators.
	OutcomeDropped = "dropped"
	// OutcomeSkipped labels interactions counted but excluded from tracking.
	OutcomeSkipped = "skipped"
)

var (
	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitals_engine",
			Name:      "records_total",
			Help:      "Total raw records ingested, partitioned by metric and outcome.",
		},
		[]string{"metric", "outcome"},
	)

	issuesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitals_engine",
			Name:      "issues_total",
			Help:      "Total classified issues emitted, partitioned by issue type.",
		},
		[]string{"type"},
	)

	pushDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vitals_engine",
			Name:      "push_seconds",
			Help:      "Per-record push processing latency in seconds.",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		},
	)

	resetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vitals_engine",
			Name:      "resets_total",
			Help:      "Total page-session resets.",
		},
	)
)

// Register attaches vitals-engine collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		recordsTotal,
		issuesTotal,
		pushDurationSeconds,
		resetsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObservePush records one ingested record with its processing duration.
func ObservePush(metric models.Metric, outcome string, duration time.Duration) {
	recordsTotal.WithLabelValues(string(metric), outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	pushDurationSeconds.Observe(duration.Seconds())
}

// ObserveIssues counts newly emitted issues by type.
func ObserveIssues(issues []models.Issue) {
	for _, issue := range issues {
		issuesTotal.WithLabelValues(string(issue.Type)).Inc()
	}
}

// ObserveReset counts a page-session reset.
func ObserveReset() {
	resetsTotal.Inc()
}
