package weights

import (
	"fmt"
	"math"
	"time"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
)

// sumTolerance is the permitted drift when checking that engine weights
// sum to 1.0. Anything beyond this is a config invariant violation.
const sumTolerance = 1e-9

// Set is one immutable, versioned weight configuration. Readers hold a
// snapshot pointer; nothing ever mutates a published Set in place.
type Set struct {
	Version           int64                   `json:"version"`
	EngineWeights     map[engine.Name]float64 `json:"engine_weights"`
	PillarAdjustments map[string]float64      `json:"pillar_adjustments,omitempty"`
	LearningRate      float64                 `json:"learning_rate"`
	Source            string                  `json:"source"` // defaults, learning, rollback
	PublishedAt       time.Time               `json:"published_at"`
}

// Weight returns the published weight for one engine.
func (s *Set) Weight(name engine.Name) float64 {
	return s.EngineWeights[name]
}

// Clone deep-copies the set so proposals never alias published state.
func (s *Set) Clone() *Set {
	out := *s
	out.EngineWeights = make(map[engine.Name]float64, len(s.EngineWeights))
	for k, v := range s.EngineWeights {
		out.EngineWeights[k] = v
	}
	if s.PillarAdjustments != nil {
		out.PillarAdjustments = make(map[string]float64, len(s.PillarAdjustments))
		for k, v := range s.PillarAdjustments {
			out.PillarAdjustments[k] = v
		}
	}
	return &out
}

// Bounds constrains every learning-loop update. The learning loop may
// tune weight magnitudes within these rails but never engine separation
// or tier thresholds; those are structural constants.
type Bounds struct {
	MaxDeltaPerUpdate float64 `yaml:"max_delta_per_update" json:"max_delta_per_update" validate:"gt=0,lte=0.2"`
	WeightFloor       float64 `yaml:"weight_floor" json:"weight_floor" validate:"gte=0"`
	WeightCeiling     float64 `yaml:"weight_ceiling" json:"weight_ceiling" validate:"gt=0,lte=1"`
}

// DefaultBounds returns the production update rails.
func DefaultBounds() Bounds {
	return Bounds{
		MaxDeltaPerUpdate: 0.05,
		WeightFloor:       0.10,
		WeightCeiling:     0.50,
	}
}

// DefaultSet returns the version-1 startup weights.
func DefaultSet() *Set {
	return &Set{
		Version: 1,
		EngineWeights: map[engine.Name]float64{
			engine.AI:       0.30,
			engine.Research: 0.30,
			engine.Esoteric: 0.20,
			engine.Jarvis:   0.20,
		},
		PillarAdjustments: map[string]float64{},
		LearningRate:      1.0,
		Source:            "defaults",
		PublishedAt:       time.Now().UTC(),
	}
}

// InvariantError reports a weight set that failed structural validation.
// The offending update is rejected whole; the prior version stays current.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return "weight invariant violation: " + e.Reason
}

// validateSet checks the structural invariants every published Set must
// hold: all four engines present, finite weights, sum exactly 1.0.
func validateSet(s *Set) error {
	if len(s.EngineWeights) != len(engine.All) {
		return &InvariantError{Reason: fmt.Sprintf("expected %d engine weights, got %d",
			len(engine.All), len(s.EngineWeights))}
	}
	sum := 0.0
	for _, name := range engine.All {
		w, ok := s.EngineWeights[name]
		if !ok {
			return &InvariantError{Reason: fmt.Sprintf("missing weight for engine %s", name)}
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return &InvariantError{Reason: fmt.Sprintf("weight for %s is not a valid proportion: %v", name, w)}
		}
		sum += w
	}
	if math.Abs(sum-1.0) > sumTolerance {
		return &InvariantError{Reason: fmt.Sprintf("weights sum to %.12f, must equal 1.0", sum)}
	}
	return nil
}

// validateUpdate checks a proposed successor against the current set and
// the configured bounds: bounded per-engine delta, floor/ceiling rails.
func validateUpdate(current, proposed *Set, b Bounds) error {
	if err := validateSet(proposed); err != nil {
		return err
	}
	for _, name := range engine.All {
		cur := current.EngineWeights[name]
		next := proposed.EngineWeights[name]
		if delta := math.Abs(next - cur); delta > b.MaxDeltaPerUpdate+sumTolerance {
			return &InvariantError{Reason: fmt.Sprintf(
				"engine %s delta %.4f exceeds max %.4f per update", name, delta, b.MaxDeltaPerUpdate)}
		}
		if next < b.WeightFloor-sumTolerance || next > b.WeightCeiling+sumTolerance {
			return &InvariantError{Reason: fmt.Sprintf(
				"engine %s weight %.4f outside [%.2f, %.2f]", name, next, b.WeightFloor, b.WeightCeiling)}
		}
	}
	return nil
}
