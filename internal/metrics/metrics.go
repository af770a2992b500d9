package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	actionInvoked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Name:      "appointment_action_total",
			Help:      "Count of appointment actions invoked by kind and result.",
		},
		[]string{"action", "result"},
	)

	rescheduleDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Name:      "reschedule_decision_total",
			Help:      "Count of reschedule request transitions.",
		},
		[]string{"decision"},
	)

	staleResponses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Name:      "stale_responses_discarded_total",
			Help:      "Count of list responses discarded because a newer request was issued.",
		},
	)

	unknownStatuses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Name:      "unknown_status_total",
			Help:      "Count of appointments received with a status outside the known set.",
		},
		[]string{"status"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clinicdesk",
			Name:      "backend_request_duration_seconds",
			Help:      "Backend request latency by method and outcome.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"method", "outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(actionInvoked, rescheduleDecision, staleResponses, unknownStatuses, apiDuration)
	})
}

func IncAction(action, result string) {
	actionInvoked.WithLabelValues(action, result).Inc()
}

func IncRescheduleDecision(decision string) {
	rescheduleDecision.WithLabelValues(decision).Inc()
}

func IncStaleResponse() {
	staleResponses.Inc()
}

func IncUnknownStatus(status string) {
	unknownStatuses.WithLabelValues(status).Inc()
}

func ObserveBackendRequest(method, outcome string, seconds float64) {
	apiDuration.WithLabelValues(method, outcome).Observe(seconds)
}
