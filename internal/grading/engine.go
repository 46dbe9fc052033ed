package grading

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/ledger"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/pick"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/telemetry"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/weights"
)

// Config controls the grading cycle and the learning window. The loop
// tunes weight magnitudes only; engine separation and tier thresholds
// are structural and never appear here.
type Config struct {
	// EventDuration approximates how long after start an event has
	// concluded and can be resolved.
	EventDuration time.Duration `yaml:"event_duration"`

	// LearningWindow bounds how far back performance aggregation looks.
	LearningWindow time.Duration `yaml:"learning_window"`

	// MinGradedForLearning gates proposals: fewer decisive grades than
	// this and the cycle records stats but proposes nothing.
	MinGradedForLearning int `yaml:"min_graded_for_learning"`

	// ReportDir receives JSON performance artifacts; empty disables.
	ReportDir string `yaml:"report_dir"`

	Resolver ResolverGuardConfig `yaml:"resolver"`
}

// DefaultConfig returns production grading settings.
func DefaultConfig() *Config {
	return &Config{
		EventDuration:        4 * time.Hour,
		LearningWindow:       30 * 24 * time.Hour,
		MinGradedForLearning: 20,
		Resolver:             DefaultResolverGuardConfig(),
	}
}

// CycleReport summarizes one grading pass.
type CycleReport struct {
	StartedAt  time.Time `json:"started_at"`
	Examined   int       `json:"examined"`
	Graded     int       `json:"graded"`
	Unresolved int       `json:"unresolved"`
	Errors     []string  `json:"errors,omitempty"`
}

// Engine resolves outcomes for concluded picks and, on the learning
// cadence, proposes bounded weight updates. It runs decoupled from
// request traffic; its only interaction with scoring is publishing new
// weight versions, which readers pick up without blocking.
type Engine struct {
	cfg      *Config
	ledger   ledger.Ledger
	resolver OutcomeResolver
	store    *weights.Store
	metrics  *telemetry.Metrics
}

// NewEngine wires a grading engine. The resolver is wrapped with the
// configured guards; pass nil metrics in tests.
func NewEngine(cfg *Config, lg ledger.Ledger, resolver OutcomeResolver, store *weights.Store, metrics *telemetry.Metrics) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{
		cfg:      cfg,
		ledger:   lg,
		resolver: Guard(resolver, cfg.Resolver),
		store:    store,
		metrics:  metrics,
	}
}

// RunCycle grades every ungraded pick whose event has concluded.
// Resolver failures are isolated per pick; the cycle continues.
func (e *Engine) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{StartedAt: time.Now().UTC()}
	cutoff := time.Now().Add(-e.cfg.EventDuration)

	picks, err := e.ledger.Ungraded(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list ungraded picks: %w", err)
	}
	report.Examined = len(picks)

	for _, p := range picks {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		resolved, err := e.resolver.Resolve(ctx, p)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", p.PickID, err))
			log.Warn().Err(err).Str("pick_id", p.PickID).Msg("outcome resolution failed")
			continue
		}
		if !resolved.Settled {
			report.Unresolved++
			continue
		}
		grade := toGrade(p.PickID, resolved)
		if _, err := e.ledger.AttachGrade(ctx, grade); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", p.PickID, err))
			continue
		}
		report.Graded++
		if e.metrics != nil {
			e.metrics.PicksGraded.Inc()
		}
	}

	if e.metrics != nil {
		e.metrics.GradingCycles.Inc()
	}
	log.Info().
		Int("examined", report.Examined).
		Int("graded", report.Graded).
		Int("unresolved", report.Unresolved).
		Int("errors", len(report.Errors)).
		Msg("grading cycle complete")
	return report, nil
}

// toGrade converts a resolved outcome. Pushes and voids carry no
// win/loss signal, so Correct stays nil.
func toGrade(pickID string, r *ResolvedOutcome) pick.GradingResult {
	g := pick.GradingResult{
		PickID:        pickID,
		ActualOutcome: r.Outcome,
		ROI:           r.ROI,
		GradedAt:      time.Now().UTC(),
	}
	switch r.Outcome {
	case pick.OutcomeWon:
		v := true
		g.Correct = &v
	case pick.OutcomeLost:
		v := false
		g.Correct = &v
	}
	return g
}
