package confluence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/modifiers"
)

func activeSet(ai, research, esoteric, jarvis float64) engine.ScoreSet {
	return engine.ScoreSet{
		AI:       engine.Score{Value: ai, Active: true},
		Research: engine.Score{Value: research, Active: true},
		Esoteric: engine.Score{Value: esoteric, Active: true},
		Jarvis:   engine.Score{Value: jarvis, Active: true},
	}
}

func TestAlignment(t *testing.T) {
	cases := []struct {
		name     string
		research float64
		esoteric float64
		want     float64
	}{
		{"identical", 8.0, 8.0, 1.0},
		{"maximal disagreement", 10.0, 0.0, 0.0},
		{"moderate gap", 8.0, 6.0, 0.8},
		{"order independent", 6.0, 8.0, 0.8},
		{"small gap", 7.8, 7.6, 0.98},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Alignment(tc.research, tc.esoteric), 1e-9)
		})
	}
}

func TestEvaluate_Ladder(t *testing.T) {
	calc := NewCalculator(nil)

	cases := []struct {
		name string
		set  engine.ScoreSet
		sig  Signals
		want Level
	}{
		{
			name: "perfect needs high pillars and an active signal",
			set:  activeSet(7, 7.8, 7.6, 6),
			sig:  Signals{SharpMoneyActive: true},
			want: Perfect,
		},
		{
			name: "high alignment without a signal drops to strong",
			set:  activeSet(7, 7.8, 7.6, 6),
			sig:  Signals{},
			want: Strong,
		},
		{
			name: "high alignment with low pillars is only strong",
			set:  activeSet(7, 6.0, 5.9, 6),
			sig:  Signals{SimulationActive: true},
			want: Strong,
		},
		{
			name: "moderate alignment",
			set:  activeSet(7, 8.0, 4.5, 6),
			sig:  Signals{},
			want: Moderate,
		},
		{
			name: "divergent pillars",
			set:  activeSet(7, 9.0, 3.0, 6),
			sig:  Signals{SharpMoneyActive: true},
			want: Divergent,
		},
		{
			name: "moderate boundary is inclusive",
			set:  activeSet(7, 8.0, 3.0, 6), // alignment exactly 0.50
			sig:  Signals{},
			want: Moderate,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := calc.Evaluate(tc.set, tc.sig)
			assert.Equal(t, tc.want, a.Level)
			assert.Equal(t, calc.Config().Boosts[tc.want], a.Boost)
			assert.NotEmpty(t, a.Reasons)
		})
	}
}

func TestEvaluate_SpecialLevels(t *testing.T) {
	calc := NewCalculator(nil)

	t.Run("immortal when all four engines clear the floor", func(t *testing.T) {
		a := calc.Evaluate(activeSet(9.5, 9.5, 9.5, 9.5), Signals{})
		assert.Equal(t, Immortal, a.Level)
		assert.Equal(t, 0.80, a.Boost)
	})

	t.Run("immortal outranks jarvis perfect and harmonic", func(t *testing.T) {
		// This set also satisfies JARVIS_PERFECT and HARMONIC_CONVERGENCE;
		// the first special case wins.
		a := calc.Evaluate(activeSet(9.5, 9.5, 9.5, 9.6), Signals{
			TriggerName:      "mercury_retrograde",
			SharpMoneyActive: true,
		})
		assert.Equal(t, Immortal, a.Level)
	})

	t.Run("jarvis perfect needs trigger bar and strong alignment", func(t *testing.T) {
		a := calc.Evaluate(activeSet(7, 7.5, 7.0, 9.6), Signals{TriggerName: "primetime_fade"})
		assert.Equal(t, JarvisPerfect, a.Level)
		assert.Equal(t, 0.70, a.Boost)
	})

	t.Run("jarvis below bar falls back to the ladder", func(t *testing.T) {
		a := calc.Evaluate(activeSet(7, 7.5, 7.0, 9.4), Signals{TriggerName: "primetime_fade"})
		assert.Equal(t, Strong, a.Level)
	})

	t.Run("trigger without active jarvis engine is ignored", func(t *testing.T) {
		set := activeSet(7, 7.5, 7.0, 9.6)
		set.Jarvis.Active = false
		a := calc.Evaluate(set, Signals{TriggerName: "primetime_fade"})
		assert.Equal(t, Strong, a.Level)
	})

	t.Run("harmonic convergence", func(t *testing.T) {
		a := calc.Evaluate(activeSet(7, 8.0, 8.0, 6), Signals{SharpMoneyActive: true})
		assert.Equal(t, HarmonicConvergence, a.Level)
		assert.Equal(t, 0.75, a.Boost)
	})

	t.Run("harmonic without a side signal drops to strong", func(t *testing.T) {
		// Pillars agree at 8.0 but nothing independent corroborates, and
		// PERFECT needs a signal too, so this lands on STRONG.
		a := calc.Evaluate(activeSet(7, 8.0, 8.0, 6), Signals{})
		assert.Equal(t, Strong, a.Level)
	})

	t.Run("harmonic needs both pillars at the floor", func(t *testing.T) {
		a := calc.Evaluate(activeSet(7, 7.9, 7.6, 6), Signals{SimulationActive: true})
		assert.Equal(t, Perfect, a.Level)
	})
}

func TestEvaluate_Titanium(t *testing.T) {
	calc := NewCalculator(nil)

	cases := []struct {
		name     string
		set      engine.ScoreSet
		wantHits int
		wantFlag bool
	}{
		{"three engines at or above", activeSet(8.5, 8.2, 8.1, 7.0), 3, true},
		{"exactly eight counts", activeSet(8.0, 8.0, 8.0, 2.0), 3, true},
		{"just below does not", activeSet(7.99, 8.2, 8.1, 7.0), 2, false},
		{"single qualifier", activeSet(8.5, 6.0, 5.0, 4.0), 1, false},
		{"all four", activeSet(8.0, 8.0, 8.0, 8.0), 4, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := calc.Evaluate(tc.set, Signals{})
			assert.Equal(t, tc.wantHits, a.TitaniumHits)
			assert.Equal(t, tc.wantFlag, a.TitaniumFlag)
		})
	}

	t.Run("inactive engines never count", func(t *testing.T) {
		set := activeSet(8.5, 8.2, 8.1, 7.0)
		set.AI.Active = false
		a := calc.Evaluate(set, Signals{})
		assert.Equal(t, 2, a.TitaniumHits)
		assert.False(t, a.TitaniumFlag)
	})
}

func TestBoostResult(t *testing.T) {
	calc := NewCalculator(nil)

	t.Run("divergent contributes nothing", func(t *testing.T) {
		r := calc.BoostResult(Assessment{Level: Divergent, Boost: 0}, 0.8)
		assert.Equal(t, modifiers.StatusNotRelevant, r.Status)
		assert.Zero(t, r.Value)
	})

	t.Run("level boost is applied", func(t *testing.T) {
		r := calc.BoostResult(Assessment{Level: Perfect, Boost: 0.60, Alignment: 0.9}, 0.8)
		assert.Equal(t, modifiers.StatusApplied, r.Status)
		assert.Equal(t, 0.60, r.Value)
		assert.Equal(t, modifiers.NameConfluenceBoost, r.Name)
	})

	t.Run("clamped to the modifier cap", func(t *testing.T) {
		r := calc.BoostResult(Assessment{Level: Immortal, Boost: 0.80}, 0.5)
		assert.Equal(t, 0.5, r.Value)
	})
}
