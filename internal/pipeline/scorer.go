package pipeline

import (
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/confluence"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/modifiers"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/pick"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/tier"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/weights"
)

// Config holds scorer-level settings.
type Config struct {
	// Baseline substituted for inactive engine scores.
	InactiveBaseline float64 `yaml:"inactive_baseline"`

	// Worker pool width for batch scoring; <=0 means one worker per
	// candidate up to a small multiple of CPUs.
	Workers int `yaml:"workers"`
}

// DefaultConfig returns production scorer settings.
func DefaultConfig() *Config {
	return &Config{
		InactiveBaseline: 5.0,
		Workers:          8,
	}
}

// Scorer runs the per-candidate pipeline: pre-base modifiers, weighted
// composition, confluence, post-base modifiers under the shared cap,
// environmental scaling, tier assignment. Given the same candidate,
// inputs and weight snapshot it always produces the same result; the
// only shared state it reads is the immutable WeightSet passed in.
type Scorer struct {
	cfg   *Config
	mods  *modifiers.Pipeline
	conf  *confluence.Calculator
	tiers *tier.Assignor
}

// NewScorer wires the scoring stages. Nil arguments fall back to
// defaults.
func NewScorer(cfg *Config, mods *modifiers.Pipeline, conf *confluence.Calculator, tiers *tier.Assignor) *Scorer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if mods == nil {
		mods = modifiers.NewPipeline(nil)
	}
	if conf == nil {
		conf = confluence.NewCalculator(nil)
	}
	if tiers == nil {
		tiers = tier.NewAssignor(nil)
	}
	return &Scorer{cfg: cfg, mods: mods, conf: conf, tiers: tiers}
}

// TierConfig exposes the assignor's configuration for output shaping.
func (s *Scorer) TierConfig() *tier.Config {
	return s.tiers.Config()
}

// Score runs the full pipeline for one candidate against one weight
// snapshot. Returns an error only for malformed input; every other
// degradation is recorded in the modifier audit trail instead.
func (s *Scorer) Score(c pick.Candidate, ws *weights.Set) (*pick.Scored, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	in := c.Inputs

	// Pre-base modifiers adjust engine scores and freeze them before
	// composition.
	adjusted, preResults := s.mods.ApplyPreBase(c.Scores, in)

	base, parts := Compose(adjusted, ws, s.cfg.InactiveBaseline)

	// Confluence reads the frozen scores plus the auxiliary side
	// signals; its boost joins the post-base family exactly once.
	sig := confluence.Signals{
		TriggerName:      in.TriggerName,
		SharpMoneyActive: in.SharpActive(s.mods.Config().SharpThresholdPct),
		SimulationActive: in.SimulationActive(),
	}
	assessment := s.conf.Evaluate(adjusted, sig)
	confBoost := s.conf.BoostResult(assessment, s.mods.Config().ConfluenceBoostCap)

	boosted, postResults := s.mods.ApplyPostBase(base, in, confBoost)
	final, envResults := s.mods.ApplyEnvironmental(boosted, in)

	assignment := s.tiers.Assign(adjusted, final, assessment)

	all := make([]modifiers.Result, 0, len(preResults)+len(postResults)+len(envResults))
	all = append(all, preResults...)
	all = append(all, postResults...)
	all = append(all, envResults...)

	return &pick.Scored{
		Candidate:      c,
		AdjustedScores: adjusted,
		BaseScore:      base,
		BaseParts:      parts,
		Modifiers:      all,
		Confluence:     assessment,
		FinalScore:     final,
		Tier:           assignment,
		WeightVersion:  ws.Version,
		Reasons:        collectReasons(adjusted, all, assessment, assignment),
	}, nil
}

// collectReasons assembles the ordered, human-readable explanation:
// engine reasons first, then applied modifiers, confluence, tier.
func collectReasons(set engine.ScoreSet, mods []modifiers.Result, conf confluence.Assessment, assignment tier.Assignment) []engine.Reason {
	out := set.CollectReasons()
	for _, m := range mods {
		if m.Status != modifiers.StatusApplied {
			continue
		}
		for _, r := range m.Reasons {
			out = append(out, engine.Reason{Code: m.Name + "." + r.Code, Text: r.Text})
		}
	}
	out = append(out, conf.Reasons...)
	out = append(out, assignment.Reasons...)
	return out
}
