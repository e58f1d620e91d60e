package matchmaking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	selectorTierAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaking_selector_tier_attempts_total",
			Help: "Candidate provider tiers attempted",
		},
		[]string{"tier", "outcome"}, // outcome: win, empty, error
	)

	dropsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaking_weekly_drops_created_total",
			Help: "Weekly drop rows created, by initial status",
		},
		[]string{"status"},
	)

	dropTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaking_weekly_drop_transitions_total",
			Help: "Weekly drop terminal transitions",
		},
		[]string{"to"},
	)

	dropInsertConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchmaking_weekly_drop_insert_conflicts_total",
			Help: "Weekly drop creation races lost to a concurrent writer",
		},
	)

	reasonCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaking_reason_cache_lookups_total",
			Help: "Compatibility reason cache lookups",
		},
		[]string{"outcome"}, // hit, generated, failed
	)

	exclusionSourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaking_exclusion_source_failures_total",
			Help: "Exclusion sources that contributed nothing due to errors",
		},
		[]string{"source"},
	)

	responsesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaking_responses_recorded_total",
			Help: "Candidate responses recorded",
		},
		[]string{"mode", "action"},
	)

	candidateSimilarity = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchmaking_candidate_similarity",
			Help:    "Similarity scores of served candidates",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

func recordTierAttempt(tier, outcome string) {
	selectorTierAttempts.WithLabelValues(tier, outcome).Inc()
}

func recordDropCreated(status string) {
	dropsCreated.WithLabelValues(status).Inc()
}

func recordDropTransition(to string) {
	dropTransitions.WithLabelValues(to).Inc()
}

func recordReasonLookup(outcome string) {
	reasonCacheLookups.WithLabelValues(outcome).Inc()
}

func recordExclusionFailure(source string) {
	exclusionSourceFailures.WithLabelValues(source).Inc()
}

func recordResponse(mode, action string) {
	responsesRecorded.WithLabelValues(mode, action).Inc()
}
