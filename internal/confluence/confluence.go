package confluence

import (
	"fmt"
	"math"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/modifiers"
)

// Level is the discrete agreement grade between the research and
// esoteric engines, worst to best. The named special cases are mutually
// exclusive: they are evaluated in order before the generic alignment
// ladder and the first match wins.
type Level string

const (
	Divergent           Level = "DIVERGENT"
	Moderate            Level = "MODERATE"
	Strong              Level = "STRONG"
	Perfect             Level = "PERFECT"
	JarvisPerfect       Level = "JARVIS_PERFECT"
	Immortal            Level = "IMMORTAL"
	HarmonicConvergence Level = "HARMONIC_CONVERGENCE"
)

// Config holds the alignment ladder and special-case thresholds.
type Config struct {
	// Generic alignment ladder cutoffs.
	PerfectAlignment  float64 `yaml:"perfect_alignment"`
	StrongAlignment   float64 `yaml:"strong_alignment"`
	ModerateAlignment float64 `yaml:"moderate_alignment"`

	// Both research and esoteric must clear this for PERFECT.
	HighScoreThreshold float64 `yaml:"high_score_threshold"`

	// Special cases.
	ImmortalFloor     float64 `yaml:"immortal_floor"`      // all four engines at or above
	JarvisPerfectBar  float64 `yaml:"jarvis_perfect_bar"`  // jarvis at or above, with trigger
	HarmonicAlignment float64 `yaml:"harmonic_alignment"`  // near-total agreement
	HarmonicPairFloor float64 `yaml:"harmonic_pair_floor"` // research and esoteric floor

	// Titanium override, independent of the composed score.
	TitaniumThreshold  float64 `yaml:"titanium_threshold"`
	TitaniumMinEngines int     `yaml:"titanium_min_engines"`

	// Boost contributed to the post-base modifier family per level.
	Boosts map[Level]float64 `yaml:"boosts"`
}

// DefaultConfig returns production confluence settings.
func DefaultConfig() *Config {
	return &Config{
		PerfectAlignment:  0.85,
		StrongAlignment:   0.70,
		ModerateAlignment: 0.50,

		HighScoreThreshold: 7.5,

		ImmortalFloor:     9.0,
		JarvisPerfectBar:  9.5,
		HarmonicAlignment: 0.93,
		HarmonicPairFloor: 8.0,

		TitaniumThreshold:  8.0,
		TitaniumMinEngines: 3,

		Boosts: map[Level]float64{
			Divergent:           0.0,
			Moderate:            0.15,
			Strong:              0.35,
			Perfect:             0.60,
			JarvisPerfect:       0.70,
			HarmonicConvergence: 0.75,
			Immortal:            0.80,
		},
	}
}

// Signals are the auxiliary conditions the ladder consults beyond raw
// alignment. They are derived from the same resolved side-signal inputs
// the modifier pipeline reads; confluence never re-reads engine
// internals.
type Signals struct {
	TriggerName      string // named jarvis trigger, "" when absent
	SharpMoneyActive bool
	SimulationActive bool
}

// hasActiveSignal reports whether at least one independent side signal
// corroborates the pair agreement.
func (s Signals) hasActiveSignal() bool {
	return s.SharpMoneyActive || s.SimulationActive
}

// Assessment is the combined confluence and titanium outcome for one
// candidate.
type Assessment struct {
	Alignment    float64         `json:"alignment"`
	Level        Level           `json:"level"`
	Boost        float64         `json:"boost"`
	TitaniumFlag bool            `json:"titanium_flag"`
	TitaniumHits int             `json:"titanium_hits"`
	Reasons      []engine.Reason `json:"reasons"`
}

// Calculator evaluates confluence levels and the titanium override.
type Calculator struct {
	cfg *Config
}

// NewCalculator creates a calculator, falling back to defaults on nil.
func NewCalculator(cfg *Config) *Calculator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Calculator{cfg: cfg}
}

// Config exposes the active configuration (read-only use).
func (c *Calculator) Config() *Config {
	return c.cfg
}

// Alignment measures agreement between the research and esoteric scores
// on [0, 1]: identical scores align at 1, maximal disagreement at 0.
func Alignment(research, esoteric float64) float64 {
	a := 1 - math.Abs(research-esoteric)/engine.MaxScore
	if a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}

// Evaluate computes the confluence assessment for a pre-base-adjusted
// score set. Special-case levels short-circuit in order IMMORTAL,
// JARVIS_PERFECT, HARMONIC_CONVERGENCE before the generic ladder runs.
// The titanium count uses the same frozen scores and is independent of
// the composed score.
func (c *Calculator) Evaluate(set engine.ScoreSet, sig Signals) Assessment {
	research := set.Research.Value
	esoteric := set.Esoteric.Value
	a := Assessment{Alignment: Alignment(research, esoteric)}

	a.Level, a.Reasons = c.resolveLevel(set, sig, a.Alignment)
	a.Boost = c.cfg.Boosts[a.Level]

	a.TitaniumHits = c.titaniumHits(set)
	a.TitaniumFlag = a.TitaniumHits >= c.cfg.TitaniumMinEngines
	if a.TitaniumFlag {
		a.Reasons = append(a.Reasons, engine.Reason{
			Code: "titanium",
			Text: fmt.Sprintf("%d of %d engines at or above %.1f", a.TitaniumHits, len(engine.All), c.cfg.TitaniumThreshold),
		})
	}
	return a
}

func (c *Calculator) resolveLevel(set engine.ScoreSet, sig Signals, alignment float64) (Level, []engine.Reason) {
	research := set.Research.Value
	esoteric := set.Esoteric.Value

	// Special cases first; the first match wins.
	if c.allEnginesAtOrAbove(set, c.cfg.ImmortalFloor) {
		return Immortal, []engine.Reason{{
			Code: "immortal",
			Text: fmt.Sprintf("all four engines at or above %.1f", c.cfg.ImmortalFloor),
		}}
	}
	if sig.TriggerName != "" && set.Jarvis.Active && set.Jarvis.Value >= c.cfg.JarvisPerfectBar &&
		alignment >= c.cfg.StrongAlignment {
		return JarvisPerfect, []engine.Reason{{
			Code: "jarvis_perfect",
			Text: fmt.Sprintf("jarvis %.1f with trigger %q and strong alignment", set.Jarvis.Value, sig.TriggerName),
		}}
	}
	if alignment >= c.cfg.HarmonicAlignment &&
		research >= c.cfg.HarmonicPairFloor && esoteric >= c.cfg.HarmonicPairFloor &&
		sig.hasActiveSignal() {
		return HarmonicConvergence, []engine.Reason{{
			Code: "harmonic_convergence",
			Text: fmt.Sprintf("alignment %.2f with both pillars above %.1f and an active signal", alignment, c.cfg.HarmonicPairFloor),
		}}
	}

	// Generic ladder.
	switch {
	case alignment >= c.cfg.PerfectAlignment &&
		research >= c.cfg.HighScoreThreshold && esoteric >= c.cfg.HighScoreThreshold &&
		sig.hasActiveSignal():
		return Perfect, []engine.Reason{{
			Code: "perfect_confluence",
			Text: fmt.Sprintf("alignment %.2f, both pillars above %.1f, active signal present", alignment, c.cfg.HighScoreThreshold),
		}}
	case alignment >= c.cfg.StrongAlignment:
		return Strong, []engine.Reason{{
			Code: "strong_confluence",
			Text: fmt.Sprintf("research/esoteric alignment %.2f", alignment),
		}}
	case alignment >= c.cfg.ModerateAlignment:
		return Moderate, []engine.Reason{{
			Code: "moderate_confluence",
			Text: fmt.Sprintf("research/esoteric alignment %.2f", alignment),
		}}
	default:
		return Divergent, []engine.Reason{{
			Code: "divergent",
			Text: fmt.Sprintf("research/esoteric alignment %.2f, pillars disagree", alignment),
		}}
	}
}

func (c *Calculator) allEnginesAtOrAbove(set engine.ScoreSet, floor float64) bool {
	for _, name := range engine.All {
		sc := set.Get(name)
		if !sc.Active || sc.Value < floor {
			return false
		}
	}
	return true
}

// titaniumHits counts engines at or above the titanium threshold.
// Exactly 8.0 counts; 7.99 does not. Inactive engines never count.
func (c *Calculator) titaniumHits(set engine.ScoreSet) int {
	hits := 0
	for _, name := range engine.All {
		sc := set.Get(name)
		if sc.Active && sc.Value >= c.cfg.TitaniumThreshold {
			hits++
		}
	}
	return hits
}

// BoostResult wraps the chosen level's boost as the single confluence
// member of the post-base modifier family, so it is never summed twice
// with a generic alignment boost. The value is clamped to the
// confluence modifier's own cap before joining the shared-cap sum.
func (c *Calculator) BoostResult(a Assessment, maxBoost float64) modifiers.Result {
	value := a.Boost
	if value > maxBoost {
		value = maxBoost
	}
	if value == 0 {
		return modifiers.Result{
			Name:   modifiers.NameConfluenceBoost,
			Status: modifiers.StatusNotRelevant,
			Reasons: []engine.Reason{{
				Code: "no_confluence_boost",
				Text: fmt.Sprintf("level %s carries no boost", a.Level),
			}},
		}
	}
	return modifiers.Result{
		Name:   modifiers.NameConfluenceBoost,
		Value:  value,
		Status: modifiers.StatusApplied,
		Reasons: []engine.Reason{{
			Code: "confluence_" + string(a.Level),
			Text: fmt.Sprintf("confluence level %s (alignment %.2f)", a.Level, a.Alignment),
		}},
	}
}
