// Package metrics exposes Prometheus collectors for assessment sessions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "assessment"

var (
	// SessionsStarted counts sessions by start mode (fresh or resumed).
	SessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_started_total",
		Help:      "Assessment sessions started, by mode.",
	}, []string{"mode"})

	// SessionsFinalized counts finished sessions by trigger (user or timer).
	SessionsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_finalized_total",
		Help:      "Assessment sessions finalized, by trigger.",
	}, []string{"trigger"})

	// LowTimeWarnings counts one-shot low-time warnings.
	LowTimeWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "low_time_warnings_total",
		Help:      "Low remaining time warnings emitted.",
	})

	// SnapshotFailures counts snapshot store errors by operation.
	SnapshotFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_failures_total",
		Help:      "Snapshot persistence failures, by operation.",
	}, []string{"op"})

	// UnresolvedQuestions counts question IDs that could not be resolved.
	UnresolvedQuestions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unresolved_questions_total",
		Help:      "Question IDs referenced by an assessment but missing from the repository.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
