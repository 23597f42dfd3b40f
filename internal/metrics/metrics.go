package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ZoneEventsReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zonematch_zone_events_total",
		Help: "Total number of zone entry/exit events applied during replay.",
	})

	LinesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonematch_lines_skipped_total",
		Help: "Total number of malformed or incomplete log lines skipped, labelled by source.",
	}, []string{"source"})

	PaymentsEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonematch_payments_evaluated_total",
		Help: "Total number of payment events evaluated, labelled by match type.",
	}, []string{"match_type"})

	CandidateBuckets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonematch_candidate_buckets_total",
		Help: "Payment candidate-count distribution, labelled by bucket.",
	}, []string{"bucket"})

	GroupStagePasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonematch_group_stage_passes_total",
		Help: "Shared payments passing each group-qualification stage.",
	}, []string{"stage"})

	ReplayRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zonematch_replay_runs_total",
		Help: "Total number of replay passes executed (watch mode re-runs included).",
	})
)
