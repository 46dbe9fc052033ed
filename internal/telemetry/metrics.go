package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the pipeline's operational counters. One instance is
// shared by the batch scorer, ledger wiring and grading loop.
type Metrics struct {
	CandidatesScored  prometheus.Counter
	CandidatesSkipped prometheus.Counter
	PicksByTier       *prometheus.CounterVec
	LedgerAppends     *prometheus.CounterVec
	BatchDuration     prometheus.Histogram
	GradingCycles     prometheus.Counter
	PicksGraded       prometheus.Counter
	WeightVersion     prometheus.Gauge
}

// New registers the metric set on the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh
// registry to avoid double-registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CandidatesScored: factory.NewCounter(prometheus.CounterOpts{
			Name: "pickengine_candidates_scored_total",
			Help: "Candidates scored successfully.",
		}),
		CandidatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "pickengine_candidates_skipped_total",
			Help: "Candidates rejected for malformed input.",
		}),
		PicksByTier: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pickengine_picks_total",
			Help: "Published picks by tier.",
		}, []string{"tier"}),
		LedgerAppends: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pickengine_ledger_appends_total",
			Help: "Ledger append outcomes.",
		}, []string{"result"}), // created, duplicate, error
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pickengine_batch_duration_seconds",
			Help:    "Wall time per scored batch.",
			Buckets: prometheus.DefBuckets,
		}),
		GradingCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "pickengine_grading_cycles_total",
			Help: "Completed grading cycles.",
		}),
		PicksGraded: factory.NewCounter(prometheus.CounterOpts{
			Name: "pickengine_picks_graded_total",
			Help: "Grading results written.",
		}),
		WeightVersion: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pickengine_weight_version",
			Help: "Currently published weight set version.",
		}),
	}
}
