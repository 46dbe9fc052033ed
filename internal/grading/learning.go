package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/weights"
)

// LearningReport records one learning pass: the performance window it
// saw, the weights it proposed, and whether the store accepted them.
type LearningReport struct {
	RanAt        time.Time                `json:"ran_at"`
	Performance  *Performance             `json:"performance"`
	Proposed     map[engine.Name]float64  `json:"proposed,omitempty"`
	Published    bool                     `json:"published"`
	Version      int64                    `json:"version,omitempty"`
	SkipReason   string                   `json:"skip_reason,omitempty"`
	RejectReason string                   `json:"reject_reason,omitempty"`
}

// RunLearning aggregates the window, derives a bounded weight proposal
// from per-engine win/loss separation, and publishes it through the
// store's validation. A rejected proposal leaves the prior version
// current; the report says why.
func (e *Engine) RunLearning(ctx context.Context) (*LearningReport, error) {
	now := time.Now().UTC()
	report := &LearningReport{RanAt: now}

	perf, err := e.Aggregate(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("aggregate performance: %w", err)
	}
	report.Performance = perf

	if perf.Decisive < e.cfg.MinGradedForLearning {
		report.SkipReason = fmt.Sprintf("only %d decisive grades in window, need %d",
			perf.Decisive, e.cfg.MinGradedForLearning)
		log.Info().Str("reason", report.SkipReason).Msg("learning pass skipped")
		e.writeReport(report)
		return report, nil
	}

	current := e.store.Current()
	proposed := Propose(current, perf, e.store.Bounds())
	report.Proposed = proposed.EngineWeights

	published, err := e.store.Publish(proposed, "learning")
	if err != nil {
		report.RejectReason = err.Error()
		log.Warn().Err(err).Msg("learning proposal rejected, prior weights remain current")
		e.writeReport(report)
		return report, nil
	}
	report.Published = true
	report.Version = published.Version
	if e.metrics != nil {
		e.metrics.WeightVersion.Set(float64(published.Version))
	}
	e.writeReport(report)
	return report, nil
}

// Propose derives a successor weight set from engine win/loss edges.
// Deltas are centered to zero sum so the proposal keeps summing to 1,
// then scaled down until every engine respects both the per-update
// delta rail and its floor/ceiling. The store re-validates on publish.
func Propose(current *weights.Set, perf *Performance, b weights.Bounds) *weights.Set {
	edges := make(map[engine.Name]float64, len(engine.All))
	var maxAbs float64
	for _, name := range engine.All {
		edge := 0.0
		if sig := perf.ByEngine[name]; sig != nil {
			edge = sig.Edge
		}
		edges[name] = edge
		if a := math.Abs(edge); a > maxAbs {
			maxAbs = a
		}
	}

	proposal := current.Clone()
	if maxAbs == 0 {
		return proposal
	}

	// Raw deltas proportional to edge, largest mover at the delta rail.
	deltas := make(map[engine.Name]float64, len(engine.All))
	mean := 0.0
	for _, name := range engine.All {
		d := current.LearningRate * b.MaxDeltaPerUpdate * edges[name] / maxAbs
		deltas[name] = d
		mean += d
	}
	mean /= float64(len(engine.All))

	// Center to zero sum, then find the largest scale that keeps every
	// weight inside its rails.
	scale := 1.0
	for _, name := range engine.All {
		deltas[name] -= mean
		d := deltas[name]
		if d == 0 {
			continue
		}
		if s := b.MaxDeltaPerUpdate / math.Abs(d); s < scale {
			scale = s
		}
		cur := current.EngineWeights[name]
		var headroom float64
		if d > 0 {
			headroom = b.WeightCeiling - cur
		} else {
			headroom = cur - b.WeightFloor
		}
		if headroom < 0 {
			headroom = 0
		}
		if s := headroom / math.Abs(d); s < scale {
			scale = s
		}
	}

	for _, name := range engine.All {
		proposal.EngineWeights[name] = current.EngineWeights[name] + scale*deltas[name]
	}
	return proposal
}

// writeReport drops the learning artifact as JSON, one file per pass.
func (e *Engine) writeReport(report *LearningReport) {
	if e.cfg.ReportDir == "" {
		return
	}
	if err := os.MkdirAll(e.cfg.ReportDir, 0o755); err != nil {
		log.Error().Err(err).Msg("create report dir")
		return
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("marshal learning report")
		return
	}
	path := filepath.Join(e.cfg.ReportDir,
		fmt.Sprintf("learning-%s.json", report.RanAt.Format("2006-01-02T150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", path).Msg("write learning report")
	}
}
