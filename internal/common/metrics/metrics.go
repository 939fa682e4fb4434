// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conference_item_evaluations_total",
			Help: "Total number of conference item evaluations by rule type and verdict",
		},
		[]string{"rule_type", "verdict"},
	)

	SubstitutionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conference_substitution_failures_total",
			Help: "Total number of queries rejected for unresolved placeholders",
		},
		[]string{"rule_type"},
	)

	ClientResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conference_client_responses_total",
			Help: "Total number of client confirmations by response kind",
		},
		[]string{"response"},
	)

	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conference_wizard_transitions_total",
			Help: "Total number of wizard step transitions",
		},
		[]string{"direction", "step"},
	)

	EvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "conference_evaluation_duration_seconds",
			Help: "Duration of one item evaluation including query execution",
		},
		[]string{"rule_type"},
	)
)
