package engine

import (
	"fmt"
	"math"
)

// Name identifies one of the four independent scoring engines.
type Name string

const (
	AI       Name = "ai"
	Research Name = "research"
	Esoteric Name = "esoteric"
	Jarvis   Name = "jarvis"
)

// All lists the engines in canonical order. Weighted composition and
// titanium counting iterate in this order so score breakdowns are stable.
var All = [4]Name{AI, Research, Esoteric, Jarvis}

// MinScore and MaxScore bound every engine score.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// Reason is one structured explanation entry. Downstream consumers match
// on Code; Text is for rendering only.
type Reason struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// Score is a single engine's output. An inactive score carries no signal:
// composition substitutes the configured baseline for it, it is never
// dropped from the weighted sum.
type Score struct {
	Value   float64  `json:"value"`
	Active  bool     `json:"active"`
	Reasons []Reason `json:"reasons,omitempty"`
}

// ScoreSet is the normalized container for the four engine inputs.
// Engines never read each other's raw signals; a given upstream fact
// feeds exactly one engine.
type ScoreSet struct {
	AI       Score `json:"ai"`
	Research Score `json:"research"`
	Esoteric Score `json:"esoteric"`
	Jarvis   Score `json:"jarvis"`
}

// Get returns the score for the named engine.
func (s ScoreSet) Get(name Name) Score {
	switch name {
	case AI:
		return s.AI
	case Research:
		return s.Research
	case Esoteric:
		return s.Esoteric
	case Jarvis:
		return s.Jarvis
	}
	return Score{}
}

// Set replaces the score for the named engine.
func (s *ScoreSet) Set(name Name, sc Score) {
	switch name {
	case AI:
		s.AI = sc
	case Research:
		s.Research = sc
	case Esoteric:
		s.Esoteric = sc
	case Jarvis:
		s.Jarvis = sc
	}
}

// Effective returns the value composition should use: the engine's own
// value when active, the supplied baseline otherwise.
func (s ScoreSet) Effective(name Name, baseline float64) float64 {
	sc := s.Get(name)
	if !sc.Active {
		return baseline
	}
	return sc.Value
}

// ValidationError reports a malformed or out-of-range engine score.
// It rejects the single candidate carrying it, never the whole batch.
type ValidationError struct {
	Engine Name
	Value  float64
	Msg    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("engine %s: %s (value=%.4f)", e.Engine, e.Msg, e.Value)
}

// Validate checks every active score for range and NaN/Inf poisoning.
// Inactive scores are not range-checked; their value is ignored anyway.
func (s ScoreSet) Validate() error {
	for _, name := range All {
		sc := s.Get(name)
		if !sc.Active {
			continue
		}
		if math.IsNaN(sc.Value) || math.IsInf(sc.Value, 0) {
			return &ValidationError{Engine: name, Value: sc.Value, Msg: "score is not finite"}
		}
		if sc.Value < MinScore || sc.Value > MaxScore {
			return &ValidationError{Engine: name, Value: sc.Value,
				Msg: fmt.Sprintf("score outside [%.1f, %.1f]", MinScore, MaxScore)}
		}
	}
	return nil
}

// CollectReasons flattens engine reasons in canonical order, prefixing
// each code with its engine name so audit consumers can attribute them.
func (s ScoreSet) CollectReasons() []Reason {
	var out []Reason
	for _, name := range All {
		for _, r := range s.Get(name).Reasons {
			out = append(out, Reason{
				Code: string(name) + "." + r.Code,
				Text: r.Text,
			})
		}
	}
	return out
}
