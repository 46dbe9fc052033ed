package modifiers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

func activeSet(ai, research, esoteric, jarvis float64) engine.ScoreSet {
	return engine.ScoreSet{
		AI:       engine.Score{Value: ai, Active: true},
		Research: engine.Score{Value: research, Active: true},
		Esoteric: engine.Score{Value: esoteric, Active: true},
		Jarvis:   engine.Score{Value: jarvis, Active: true},
	}
}

func findResult(t *testing.T, results []Result, name string) Result {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("modifier %s not in results", name)
	return Result{}
}

func TestApplyPreBase_LineupConfidenceShrinksAI(t *testing.T) {
	p := NewPipeline(nil)
	set := activeSet(8.0, 7.0, 7.0, 7.0)

	adjusted, results := p.ApplyPreBase(set, Inputs{LineupConfidence: fp(0.0), LineDifficulty: fp(0)})

	// Zero confidence scales by the minimum multiplier.
	assert.InDelta(t, 8.0*0.85, adjusted.AI.Value, 1e-9)
	r := findResult(t, results, NameLineupConfidence)
	assert.Equal(t, StatusApplied, r.Status)
	assert.InDelta(t, adjusted.AI.Value-8.0, r.Value, 1e-9)

	// The original set is untouched.
	assert.Equal(t, 8.0, set.AI.Value)
}

func TestApplyPreBase_FullConfidenceNotRelevant(t *testing.T) {
	p := NewPipeline(nil)
	adjusted, results := p.ApplyPreBase(activeSet(8, 7, 7, 7), Inputs{LineupConfidence: fp(1.0)})

	assert.Equal(t, 8.0, adjusted.AI.Value)
	assert.Equal(t, StatusNotRelevant, findResult(t, results, NameLineupConfidence).Status)
}

func TestApplyPreBase_MissingSignalsUnavailable(t *testing.T) {
	p := NewPipeline(nil)
	adjusted, results := p.ApplyPreBase(activeSet(8, 7, 7, 7), Inputs{})

	assert.Equal(t, 8.0, adjusted.AI.Value)
	assert.Equal(t, 7.0, adjusted.Research.Value)
	for _, name := range []string{NameLineupConfidence, NameLineDifficulty} {
		r := findResult(t, results, name)
		assert.Equal(t, StatusUnavailable, r.Status)
		assert.Zero(t, r.Value, "unavailable modifiers must contribute 0")
		require.NotEmpty(t, r.Reasons, "unavailable must always carry a reason")
	}
}

func TestApplyPreBase_LineDifficultyClampedShift(t *testing.T) {
	p := NewPipeline(nil)

	// Input beyond [-1, 1] clamps to the full shift of 0.5.
	adjusted, results := p.ApplyPreBase(activeSet(8, 7, 7, 7), Inputs{LineDifficulty: fp(3.0)})
	assert.InDelta(t, 7.5, adjusted.Research.Value, 1e-9)
	assert.InDelta(t, 0.5, findResult(t, results, NameLineDifficulty).Value, 1e-9)

	adjusted, _ = p.ApplyPreBase(activeSet(8, 7, 7, 7), Inputs{LineDifficulty: fp(-1.0)})
	assert.InDelta(t, 6.5, adjusted.Research.Value, 1e-9)
}

func TestApplyPostBase_TotalBoostCap(t *testing.T) {
	p := NewPipeline(nil)

	// Every additive boost independently at its cap: confluence 0.8,
	// simulation 0.5, expert 0.4, sharp 0.5 = 2.2 raw.
	confluenceBoost := Result{Name: NameConfluenceBoost, Value: 0.8, Status: StatusApplied}
	in := Inputs{
		SimWinProb:      fp(1.0),
		ExpertConsensus: fp(100),
		SharpMoneyPct:   fp(100),
		CorrelatedLegs:  ip(0),
		KeyNumberDist:   fp(2.0),
	}

	final, results := p.ApplyPostBase(6.0, in, confluenceBoost)

	sum := 0.0
	for _, r := range results {
		sum += r.Value
	}
	assert.Greater(t, sum, p.Config().TotalBoostCap, "raw per-modifier values exceed the shared cap")
	assert.InDelta(t, 6.0+p.Config().TotalBoostCap, final, 1e-9,
		"sum of post-base boosts is clamped to the shared total cap")
}

func TestApplyPostBase_IndividualCaps(t *testing.T) {
	p := NewPipeline(nil)
	in := Inputs{
		SimWinProb:      fp(1.0),
		ExpertConsensus: fp(100),
		SharpMoneyPct:   fp(100),
	}

	_, results := p.ApplyPostBase(5.0, in, Result{Name: NameConfluenceBoost, Status: StatusNotRelevant})

	assert.InDelta(t, 0.5, findResult(t, results, NameSimulationBoost).Value, 1e-9)
	assert.InDelta(t, 0.4, findResult(t, results, NameExpertConsensus).Value, 1e-9)
	assert.InDelta(t, 0.5, findResult(t, results, NameSharpMoney).Value, 1e-9)
}

func TestApplyPostBase_PenaltiesNegative(t *testing.T) {
	p := NewPipeline(nil)
	in := Inputs{
		CorrelatedLegs: ip(5),
		KeyNumberDist:  fp(0.0),
	}

	final, results := p.ApplyPostBase(7.0, in, Result{Name: NameConfluenceBoost, Status: StatusNotRelevant})

	corr := findResult(t, results, NameCorrelation)
	assert.Equal(t, StatusApplied, corr.Status)
	assert.InDelta(t, -0.3, corr.Value, 1e-9, "correlation penalty clamps at its own cap")

	hook := findResult(t, results, NameHookDiscipline)
	assert.InDelta(t, -0.4, hook.Value, 1e-9, "line on the key number takes the full hook penalty")

	assert.InDelta(t, 7.0-0.7, final, 1e-9)
}

func TestApplyPostBase_ThresholdsNotRelevant(t *testing.T) {
	p := NewPipeline(nil)
	in := Inputs{
		SimWinProb:      fp(0.52), // below 0.55 edge
		ExpertConsensus: fp(50),   // below 65
		SharpMoneyPct:   fp(40),   // below 60
		CorrelatedLegs:  ip(0),
		KeyNumberDist:   fp(1.0),
	}

	final, results := p.ApplyPostBase(6.0, in, Result{Name: NameConfluenceBoost, Status: StatusNotRelevant})
	assert.Equal(t, 6.0, final)
	for _, r := range results {
		assert.Zero(t, r.Value, "modifier %s", r.Name)
		assert.NotEqual(t, StatusApplied, r.Status, "modifier %s", r.Name)
	}
}

func TestApplyEnvironmental_Floor(t *testing.T) {
	p := NewPipeline(nil)

	// Extreme storm and worst weather together bottom out at the floor.
	in := Inputs{GeomagneticKp: fp(9.0), WeatherSeverity: fp(1.0)}
	final, results := p.ApplyEnvironmental(8.0, in)

	assert.InDelta(t, 8.0*p.Config().EnvironmentalFloor, final, 1e-9,
		"combined environmental multiplier never drops below the floor")
	assert.Equal(t, StatusApplied, findResult(t, results, NameGeomagnetic).Status)
	assert.Equal(t, StatusApplied, findResult(t, results, NameWeather).Status)
}

func TestApplyEnvironmental_QuietConditionsNoScaling(t *testing.T) {
	p := NewPipeline(nil)
	in := Inputs{GeomagneticKp: fp(2.0), WeatherSeverity: fp(0.1)}

	final, results := p.ApplyEnvironmental(8.0, in)
	assert.Equal(t, 8.0, final)
	assert.Equal(t, StatusNotRelevant, findResult(t, results, NameGeomagnetic).Status)
	assert.Equal(t, StatusNotRelevant, findResult(t, results, NameWeather).Status)
}

func TestApplyEnvironmental_Unavailable(t *testing.T) {
	p := NewPipeline(nil)
	final, results := p.ApplyEnvironmental(8.0, Inputs{})

	assert.Equal(t, 8.0, final)
	for _, r := range results {
		assert.Equal(t, StatusUnavailable, r.Status)
	}
}

func TestInputs_SignalHelpers(t *testing.T) {
	assert.True(t, Inputs{SharpMoneyPct: fp(70)}.SharpActive(60))
	assert.False(t, Inputs{SharpMoneyPct: fp(55)}.SharpActive(60))
	assert.False(t, Inputs{}.SharpActive(60))
	assert.True(t, Inputs{SimWinProb: fp(0.6)}.SimulationActive())
	assert.False(t, Inputs{SimWinProb: fp(0.5)}.SimulationActive())
	assert.False(t, Inputs{}.SimulationActive())
}
