package pipeline

import (
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/weights"
)

// Compose computes the weighted base score over the four engines using
// one WeightSet snapshot. Inactive engines contribute the configured
// baseline; dropping them would implicitly re-normalize the remaining
// weights and break comparability across candidates. Pure function, no
// side effects.
func Compose(set engine.ScoreSet, ws *weights.Set, inactiveBaseline float64) (float64, map[string]float64) {
	parts := make(map[string]float64, len(engine.All))
	total := 0.0
	for _, name := range engine.All {
		contribution := ws.Weight(name) * set.Effective(name, inactiveBaseline)
		parts[string(name)] = contribution
		total += contribution
	}
	return total, parts
}
