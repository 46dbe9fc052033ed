package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "jsonl", cfg.Ledger.Backend)
	assert.Equal(t, 5.0, cfg.Scoring.InactiveBaseline)
	assert.Equal(t, 1.5, cfg.Modifiers.TotalBoostCap)
}

func TestLoad_MissingPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Tiers.GoldStarThreshold, cfg.Tiers.GoldStarThreshold)
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pickengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tiers:
  gold_star_threshold: 8.0
concentration:
  max_per_sport_per_day: 5
weights:
  engine:
    ai: 0.25
    research: 0.25
    esoteric: 0.25
    jarvis: 0.25
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8.0, cfg.Tiers.GoldStarThreshold)
	assert.Equal(t, 5, cfg.Concentration.MaxPerSportPerDay)
	assert.Equal(t, 0.25, cfg.Weights.Engine["ai"])
	// Untouched sections keep their defaults.
	assert.Equal(t, 6.5, cfg.Tiers.EdgeLeanThreshold)
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"weights not summing to one", func(c *Config) {
			c.Weights.Engine["ai"] = 0.5
		}},
		{"floor above ceiling", func(c *Config) {
			c.Weights.Bounds.WeightFloor = 0.6
		}},
		{"edge threshold above gold", func(c *Config) {
			c.Tiers.EdgeLeanThreshold = 9.0
		}},
		{"monitor threshold above edge", func(c *Config) {
			c.Tiers.MonitorThreshold = 7.0
		}},
		{"prop floor above game floor", func(c *Config) {
			c.Concentration.PropFloor = 6.5
		}},
		{"postgres without dsn", func(c *Config) {
			c.Ledger.Backend = "postgres"
		}},
		{"unknown ledger backend", func(c *Config) {
			c.Ledger.Backend = "cassandra"
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tiers: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestStartupWeights(t *testing.T) {
	cfg := Default()
	cfg.Weights.Engine = map[string]float64{
		"ai": 0.40, "research": 0.30, "esoteric": 0.15, "jarvis": 0.15,
	}

	set := cfg.StartupWeights()
	assert.Equal(t, 0.40, set.EngineWeights[engine.AI])
	assert.Equal(t, 0.15, set.EngineWeights[engine.Jarvis])
	assert.EqualValues(t, 1, set.Version)
}
