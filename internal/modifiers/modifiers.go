package modifiers

import (
	"fmt"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
)

// Status classifies one modifier evaluation. A modifier whose upstream
// data is missing reports UNAVAILABLE with a reason and contributes 0;
// it never fails silently, that would make score history
// non-reproducible.
type Status string

const (
	StatusApplied     Status = "APPLIED"
	StatusNotRelevant Status = "NOT_RELEVANT"
	StatusUnavailable Status = "UNAVAILABLE"
	StatusError       Status = "ERROR"
)

// Result is one modifier's audited outcome. Value is 0 unless
// Status == APPLIED, and is already clamped to the modifier's own cap.
type Result struct {
	Name    string          `json:"name"`
	Value   float64         `json:"value"`
	Status  Status          `json:"status"`
	Reasons []engine.Reason `json:"reasons,omitempty"`
}

// Modifier names, referenced by audit consumers and tests.
const (
	NameLineupConfidence = "lineup_confidence"
	NameLineDifficulty   = "line_difficulty"
	NameConfluenceBoost  = "confluence_boost"
	NameSimulationBoost  = "simulation_boost"
	NameExpertConsensus  = "expert_consensus"
	NameSharpMoney       = "sharp_money"
	NameCorrelation      = "correlation_adjustment"
	NameHookDiscipline   = "hook_discipline"
	NameGeomagnetic      = "geomagnetic_severity"
	NameWeather          = "weather_severity"
)

// Inputs carries the already-resolved side signals feeding the pipeline.
// A nil pointer means the upstream source was unavailable; the owning
// modifier reports StatusUnavailable and contributes nothing.
type Inputs struct {
	LineupConfidence *float64 `json:"lineup_confidence,omitempty"` // 0..1, lineup/injury certainty
	LineDifficulty   *float64 `json:"line_difficulty,omitempty"`   // -1..1, signed line toughness
	SharpMoneyPct    *float64 `json:"sharp_money_pct,omitempty"`   // 0..100, handle share on this side
	SimWinProb       *float64 `json:"sim_win_prob,omitempty"`      // 0..1, simulation win probability
	ExpertConsensus  *float64 `json:"expert_consensus,omitempty"`  // 0..100, expert agreement pct
	CorrelatedLegs   *int     `json:"correlated_legs,omitempty"`   // same-slate correlated exposures
	KeyNumberDist    *float64 `json:"key_number_dist,omitempty"`   // points off nearest key number
	GeomagneticKp    *float64 `json:"geomagnetic_kp,omitempty"`    // planetary K index
	WeatherSeverity  *float64 `json:"weather_severity,omitempty"`  // 0..1
	TriggerName      string   `json:"trigger_name,omitempty"`      // named jarvis trigger, if any
}

// SharpActive reports whether sharp money qualifies as an active side
// signal for confluence purposes.
func (in Inputs) SharpActive(thresholdPct float64) bool {
	return in.SharpMoneyPct != nil && *in.SharpMoneyPct >= thresholdPct
}

// SimulationActive reports whether the simulation produced a usable edge.
func (in Inputs) SimulationActive() bool {
	return in.SimWinProb != nil && *in.SimWinProb > 0.5
}

// Config holds every modifier cap and threshold. Caps are configuration
// with documented defaults, not hard invariants; the shared total boost
// cap is the one bound no combination of boosts may exceed.
type Config struct {
	// Shared cap over the sum of all post-base additive modifiers.
	TotalBoostCap float64 `yaml:"total_boost_cap" validate:"gt=0"`

	// Per-modifier caps, applied before summation.
	ConfluenceBoostCap float64 `yaml:"confluence_boost_cap" validate:"gt=0"`
	SimulationBoostCap float64 `yaml:"simulation_boost_cap" validate:"gt=0"`
	ExpertBoostCap     float64 `yaml:"expert_boost_cap" validate:"gt=0"`
	SharpBoostCap      float64 `yaml:"sharp_boost_cap" validate:"gt=0"`
	CorrelationCap     float64 `yaml:"correlation_cap" validate:"gt=0"`
	HookPenaltyCap     float64 `yaml:"hook_penalty_cap" validate:"gt=0"`

	// Pre-base adjustments.
	LineupMinMultiplier float64 `yaml:"lineup_min_multiplier" validate:"gt=0,lte=1"`
	LineDifficultyShift float64 `yaml:"line_difficulty_shift" validate:"gte=0"`

	// Relevance thresholds.
	SharpThresholdPct  float64 `yaml:"sharp_threshold_pct"`
	ExpertThresholdPct float64 `yaml:"expert_threshold_pct"`
	SimEdgeThreshold   float64 `yaml:"sim_edge_threshold"`
	HookWindow         float64 `yaml:"hook_window"`
	CorrelationStep    float64 `yaml:"correlation_step"`

	// Environmental multiplicative family, applied last.
	GeomagneticKpThreshold float64 `yaml:"geomagnetic_kp_threshold"`
	GeomagneticStep        float64 `yaml:"geomagnetic_step"`
	WeatherThreshold       float64 `yaml:"weather_threshold"`
	WeatherMaxReduction    float64 `yaml:"weather_max_reduction"`
	EnvironmentalFloor     float64 `yaml:"environmental_floor" validate:"gt=0,lte=1"`
}

// DefaultConfig returns production modifier settings.
func DefaultConfig() *Config {
	return &Config{
		TotalBoostCap:      1.5,
		ConfluenceBoostCap: 0.8,
		SimulationBoostCap: 0.5,
		ExpertBoostCap:     0.4,
		SharpBoostCap:      0.5,
		CorrelationCap:     0.3,
		HookPenaltyCap:     0.4,

		LineupMinMultiplier: 0.85,
		LineDifficultyShift: 0.5,

		SharpThresholdPct:  60.0,
		ExpertThresholdPct: 65.0,
		SimEdgeThreshold:   0.55,
		HookWindow:         0.5,
		CorrelationStep:    0.10,

		GeomagneticKpThreshold: 5.0,
		GeomagneticStep:        0.03,
		WeatherThreshold:       0.60,
		WeatherMaxReduction:    0.10,
		EnvironmentalFloor:     0.85,
	}
}

func applied(name string, value float64, code, text string) Result {
	return Result{
		Name:    name,
		Value:   value,
		Status:  StatusApplied,
		Reasons: []engine.Reason{{Code: code, Text: text}},
	}
}

func notRelevant(name, code, text string) Result {
	return Result{
		Name:    name,
		Status:  StatusNotRelevant,
		Reasons: []engine.Reason{{Code: code, Text: text}},
	}
}

func unavailable(name, source string) Result {
	return Result{
		Name:   name,
		Status: StatusUnavailable,
		Reasons: []engine.Reason{{
			Code: "signal_unavailable",
			Text: fmt.Sprintf("%s signal not available, contributing 0", source),
		}},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
