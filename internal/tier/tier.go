package tier

import (
	"fmt"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/confluence"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
)

// Tier is the terminal recommendation grade. MONITOR and PASS are
// internal-only: they exist for audit visibility and never cross the
// output boundary or reach the ledger.
type Tier string

const (
	TitaniumSmash Tier = "TITANIUM_SMASH"
	GoldStar      Tier = "GOLD_STAR"
	EdgeLean      Tier = "EDGE_LEAN"
	Monitor       Tier = "MONITOR"
	Pass          Tier = "PASS"
)

// rank orders tiers worst to best for comparisons and reporting.
var rank = map[Tier]int{
	Pass:          0,
	Monitor:       1,
	EdgeLean:      2,
	GoldStar:      3,
	TitaniumSmash: 4,
}

// Better reports whether t outranks other.
func (t Tier) Better(other Tier) bool {
	return rank[t] > rank[other]
}

// GateCheck records a single gate evaluation for audit.
type GateCheck struct {
	Name        string  `json:"name"`
	Passed      bool    `json:"passed"`
	Value       float64 `json:"value"`
	Threshold   float64 `json:"threshold"`
	Description string  `json:"description"`
}

// Assignment is the tier decision plus its full gate audit trail.
type Assignment struct {
	Tier    Tier            `json:"tier"`
	Units   float64         `json:"units"`
	Gates   []GateCheck     `json:"gates"`
	Reasons []engine.Reason `json:"reasons"`
}

// levelRank orders confluence levels for the edge-lean floor check.
var levelRank = map[confluence.Level]int{
	confluence.Divergent:           0,
	confluence.Moderate:            1,
	confluence.Strong:              2,
	confluence.Perfect:             3,
	confluence.JarvisPerfect:       4,
	confluence.HarmonicConvergence: 5,
	confluence.Immortal:            6,
}

// Config holds tier thresholds, per-engine gold gates, stake units and
// the persist allow-list. These are structural constants as far as the
// learning loop is concerned; it never tunes them.
type Config struct {
	GoldStarThreshold float64 `yaml:"gold_star_threshold"`
	EdgeLeanThreshold float64 `yaml:"edge_lean_threshold"`
	MonitorThreshold  float64 `yaml:"monitor_threshold"`

	// Per-engine gold gates.
	GoldGateAI       float64 `yaml:"gold_gate_ai"`
	GoldGateResearch float64 `yaml:"gold_gate_research"`
	GoldGateJarvis   float64 `yaml:"gold_gate_jarvis"`
	GoldGateEsoteric float64 `yaml:"gold_gate_esoteric"`

	// Minimum confluence level for EDGE_LEAN; empty disables the floor.
	EdgeLeanMinLevel confluence.Level `yaml:"edge_lean_min_level"`

	// InactiveBaseline substitutes for inactive engine scores in the
	// gold gates, matching the substitution composition applies. Set
	// from the scoring baseline at load time, not configured here.
	InactiveBaseline float64 `yaml:"-"`

	// Stake units per tier.
	TitaniumUnits float64 `yaml:"titanium_units"`
	GoldUnits     float64 `yaml:"gold_units"`
	EdgeUnits     float64 `yaml:"edge_units"`

	// Tiers allowed to persist or leave the output boundary.
	PersistTiers []Tier `yaml:"persist_tiers"`
}

// DefaultConfig returns production tier settings.
func DefaultConfig() *Config {
	return &Config{
		GoldStarThreshold: 7.5,
		EdgeLeanThreshold: 6.5,
		MonitorThreshold:  5.0,

		GoldGateAI:       6.5,
		GoldGateResearch: 6.5,
		GoldGateJarvis:   6.0,
		GoldGateEsoteric: 5.5,

		EdgeLeanMinLevel: confluence.Moderate,
		InactiveBaseline: 5.0,

		TitaniumUnits: 3.0,
		GoldUnits:     2.0,
		EdgeUnits:     1.0,

		PersistTiers: []Tier{EdgeLean, GoldStar, TitaniumSmash},
	}
}

// Persistable reports whether t is on the configured allow-list.
func (c *Config) Persistable(t Tier) bool {
	for _, p := range c.PersistTiers {
		if p == t {
			return true
		}
	}
	return false
}

// Assignor is the single source of truth mapping a fully-scored
// candidate to a tier. The decision table runs in strict order:
// titanium override, gold star with per-engine gates, edge lean
// downgrade, monitor, pass.
type Assignor struct {
	cfg *Config
}

// NewAssignor creates an assignor, falling back to defaults on nil.
func NewAssignor(cfg *Config) *Assignor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Assignor{cfg: cfg}
}

// Config exposes the active configuration (read-only use).
func (a *Assignor) Config() *Config {
	return a.cfg
}

// Assign runs the ordered decision table. The titanium flag forces
// TITANIUM_SMASH regardless of final score; gold-eligible-by-score
// candidates failing a gold gate land in EDGE_LEAN, never below the
// ladder they qualified for by score.
func (a *Assignor) Assign(set engine.ScoreSet, finalScore float64, conf confluence.Assessment) Assignment {
	out := Assignment{}

	// Step 1: titanium override.
	if conf.TitaniumFlag {
		out.Tier = TitaniumSmash
		out.Units = a.cfg.TitaniumUnits
		out.Reasons = append(out.Reasons, engine.Reason{
			Code: "titanium_override",
			Text: fmt.Sprintf("titanium: %d engines cleared the bar, tier forced", conf.TitaniumHits),
		})
		return out
	}

	// Step 2: gold star, score threshold plus every per-engine gate.
	// Gates read the same baseline-substituted values composition used,
	// so an inactive engine is judged at the baseline rather than zero.
	goldScore := check("gold_score", finalScore, a.cfg.GoldStarThreshold)
	gates := []GateCheck{
		goldScore,
		check("gold_gate_ai", set.Effective(engine.AI, a.cfg.InactiveBaseline), a.cfg.GoldGateAI),
		check("gold_gate_research", set.Effective(engine.Research, a.cfg.InactiveBaseline), a.cfg.GoldGateResearch),
		check("gold_gate_jarvis", set.Effective(engine.Jarvis, a.cfg.InactiveBaseline), a.cfg.GoldGateJarvis),
		check("gold_gate_esoteric", set.Effective(engine.Esoteric, a.cfg.InactiveBaseline), a.cfg.GoldGateEsoteric),
	}
	out.Gates = gates

	allPassed := true
	for _, g := range gates {
		if !g.Passed {
			allPassed = false
		}
	}
	if allPassed {
		out.Tier = GoldStar
		out.Units = a.cfg.GoldUnits
		out.Reasons = append(out.Reasons, engine.Reason{
			Code: "gold_star",
			Text: fmt.Sprintf("final score %.2f with all engine gates passed", finalScore),
		})
		return out
	}

	// Step 3: edge lean, including the explicit gold-gate downgrade path.
	if finalScore >= a.cfg.EdgeLeanThreshold && a.meetsEdgeLevelFloor(conf.Level) {
		out.Tier = EdgeLean
		out.Units = a.cfg.EdgeUnits
		code, text := "edge_lean", fmt.Sprintf("final score %.2f above edge threshold", finalScore)
		if goldScore.Passed {
			code, text = "gold_gate_downgrade", fmt.Sprintf("final score %.2f gold-eligible but %s", finalScore, firstFailure(gates))
		}
		out.Reasons = append(out.Reasons, engine.Reason{Code: code, Text: text})
		return out
	}

	// Steps 4-5: internal-only tiers.
	if finalScore >= a.cfg.MonitorThreshold {
		out.Tier = Monitor
		out.Reasons = append(out.Reasons, engine.Reason{
			Code: "monitor",
			Text: fmt.Sprintf("final score %.2f, monitor only", finalScore),
		})
		return out
	}
	out.Tier = Pass
	out.Reasons = append(out.Reasons, engine.Reason{
		Code: "pass",
		Text: fmt.Sprintf("final score %.2f below monitor threshold", finalScore),
	})
	return out
}

func (a *Assignor) meetsEdgeLevelFloor(level confluence.Level) bool {
	if a.cfg.EdgeLeanMinLevel == "" {
		return true
	}
	return levelRank[level] >= levelRank[a.cfg.EdgeLeanMinLevel]
}

func check(name string, value, threshold float64) GateCheck {
	return GateCheck{
		Name:        name,
		Passed:      value >= threshold,
		Value:       value,
		Threshold:   threshold,
		Description: fmt.Sprintf("%s %.2f >= %.2f", name, value, threshold),
	}
}

func firstFailure(gates []GateCheck) string {
	for _, g := range gates {
		if !g.Passed {
			return fmt.Sprintf("gate %s failed (%.2f < %.2f)", g.Name, g.Value, g.Threshold)
		}
	}
	return "no gate failed"
}
