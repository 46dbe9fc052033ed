package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/confluence"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
)

func activeSet(ai, research, esoteric, jarvis float64) engine.ScoreSet {
	return engine.ScoreSet{
		AI:       engine.Score{Value: ai, Active: true},
		Research: engine.Score{Value: research, Active: true},
		Esoteric: engine.Score{Value: esoteric, Active: true},
		Jarvis:   engine.Score{Value: jarvis, Active: true},
	}
}

func reasonCodes(a Assignment) []string {
	codes := make([]string, 0, len(a.Reasons))
	for _, r := range a.Reasons {
		codes = append(codes, r.Code)
	}
	return codes
}

func TestAssign_TitaniumOverride(t *testing.T) {
	a := NewAssignor(nil)

	// The flag forces the tier even when the composed score is terrible.
	out := a.Assign(activeSet(8.2, 8.1, 8.0, 2.0), 2.0, confluence.Assessment{
		Level:        confluence.Divergent,
		TitaniumFlag: true,
		TitaniumHits: 3,
	})

	assert.Equal(t, TitaniumSmash, out.Tier)
	assert.Equal(t, 3.0, out.Units)
	assert.Contains(t, reasonCodes(out), "titanium_override")
}

func TestAssign_GoldStar(t *testing.T) {
	a := NewAssignor(nil)

	out := a.Assign(activeSet(7.0, 7.0, 6.0, 6.5), 7.6, confluence.Assessment{Level: confluence.Strong})

	assert.Equal(t, GoldStar, out.Tier)
	assert.Equal(t, 2.0, out.Units)
	require.Len(t, out.Gates, 5)
	for _, g := range out.Gates {
		assert.True(t, g.Passed, "gate %s", g.Name)
	}
}

func TestAssign_GoldGatesInclusive(t *testing.T) {
	a := NewAssignor(nil)

	// Every value exactly at its threshold passes.
	out := a.Assign(activeSet(6.5, 6.5, 5.5, 6.0), 7.5, confluence.Assessment{Level: confluence.Moderate})
	assert.Equal(t, GoldStar, out.Tier)
}

func TestAssign_GatesUseBaselineForInactiveEngine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GoldGateJarvis = 5.0
	a := NewAssignor(cfg)

	// Jarvis is dark, carrying a stale zero. The gate must judge it at
	// the composition baseline, not the raw value.
	set := activeSet(7.0, 7.0, 6.0, 0)
	set.Jarvis.Active = false

	out := a.Assign(set, 7.6, confluence.Assessment{Level: confluence.Strong})

	assert.Equal(t, GoldStar, out.Tier)
	for _, g := range out.Gates {
		if g.Name == "gold_gate_jarvis" {
			assert.Equal(t, 5.0, g.Value, "audit records the substituted value")
			assert.True(t, g.Passed)
		}
	}
}

func TestAssign_GoldGateDowngrade(t *testing.T) {
	a := NewAssignor(nil)

	// Gold-eligible by score but the ai gate fails: lands in EDGE_LEAN
	// with the explicit downgrade reason, never lower.
	out := a.Assign(activeSet(6.0, 7.5, 6.5, 6.5), 7.8, confluence.Assessment{Level: confluence.Strong})

	assert.Equal(t, EdgeLean, out.Tier)
	assert.Equal(t, 1.0, out.Units)
	assert.Contains(t, reasonCodes(out), "gold_gate_downgrade")

	var aiGate *GateCheck
	for i := range out.Gates {
		if out.Gates[i].Name == "gold_gate_ai" {
			aiGate = &out.Gates[i]
		}
	}
	require.NotNil(t, aiGate)
	assert.False(t, aiGate.Passed)
}

func TestAssign_EdgeLean(t *testing.T) {
	a := NewAssignor(nil)

	out := a.Assign(activeSet(6.0, 6.5, 6.0, 6.0), 6.9, confluence.Assessment{Level: confluence.Moderate})

	assert.Equal(t, EdgeLean, out.Tier)
	assert.Contains(t, reasonCodes(out), "edge_lean")
	assert.NotContains(t, reasonCodes(out), "gold_gate_downgrade")
}

func TestAssign_EdgeLeanLevelFloor(t *testing.T) {
	a := NewAssignor(nil)

	// Score clears the edge threshold but pillars diverge: the confluence
	// floor pushes it down to MONITOR.
	out := a.Assign(activeSet(6.0, 9.0, 3.0, 6.0), 6.8, confluence.Assessment{Level: confluence.Divergent})

	assert.Equal(t, Monitor, out.Tier)
	assert.Zero(t, out.Units)
}

func TestAssign_MonitorAndPass(t *testing.T) {
	a := NewAssignor(nil)

	out := a.Assign(activeSet(5, 5, 5, 5), 5.4, confluence.Assessment{Level: confluence.Moderate})
	assert.Equal(t, Monitor, out.Tier)

	out = a.Assign(activeSet(3, 3, 3, 3), 4.9, confluence.Assessment{Level: confluence.Strong})
	assert.Equal(t, Pass, out.Tier)
	assert.Zero(t, out.Units)
}

func TestBetter(t *testing.T) {
	assert.True(t, TitaniumSmash.Better(GoldStar))
	assert.True(t, GoldStar.Better(EdgeLean))
	assert.True(t, EdgeLean.Better(Monitor))
	assert.True(t, Monitor.Better(Pass))
	assert.False(t, Pass.Better(Pass))
	assert.False(t, EdgeLean.Better(TitaniumSmash))
}

func TestPersistable(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Persistable(TitaniumSmash))
	assert.True(t, cfg.Persistable(GoldStar))
	assert.True(t, cfg.Persistable(EdgeLean))
	assert.False(t, cfg.Persistable(Monitor))
	assert.False(t, cfg.Persistable(Pass))
}
