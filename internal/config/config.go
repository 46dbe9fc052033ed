package config

import (
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/concentration"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/confluence"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/grading"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/modifiers"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/pipeline"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/scheduler"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/tier"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/weights"
)

// weightSumTolerance matches the store's publish-time tolerance.
const weightSumTolerance = 1e-9

// WeightsConfig seeds the weight store.
type WeightsConfig struct {
	// Engine holds the startup engine weights; must sum to 1.0.
	Engine map[string]float64 `yaml:"engine"`

	Bounds weights.Bounds `yaml:"bounds"`

	// SnapshotDir persists published versions; empty disables.
	SnapshotDir string `yaml:"snapshot_dir"`
}

// LedgerConfig selects and parameterizes the pick ledger backend.
type LedgerConfig struct {
	Backend string `yaml:"backend" validate:"oneof=jsonl postgres"`
	Dir     string `yaml:"dir"`     // jsonl backend
	DSN     string `yaml:"dsn"`     // postgres backend

	// RedisAddr enables the cross-process claim store; empty keeps the
	// in-process claim set.
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// HTTPConfig parameterizes the operator surface.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the full file-level configuration. Every numeric constant
// of the pipeline lives here with a documented default; nothing in the
// scoring path hardcodes a threshold.
type Config struct {
	Scoring       pipeline.Config      `yaml:"scoring"`
	Modifiers     modifiers.Config     `yaml:"modifiers"`
	Confluence    confluence.Config    `yaml:"confluence"`
	Tiers         tier.Config          `yaml:"tiers"`
	Concentration concentration.Config `yaml:"concentration"`
	Weights       WeightsConfig        `yaml:"weights"`
	Ledger        LedgerConfig         `yaml:"ledger"`
	Grading       grading.Config       `yaml:"grading"`
	Scheduler     scheduler.Config     `yaml:"scheduler"`
	HTTP          HTTPConfig           `yaml:"http"`
}

// Default returns the full production default configuration.
func Default() *Config {
	ws := weights.DefaultSet()
	eng := make(map[string]float64, len(ws.EngineWeights))
	for name, w := range ws.EngineWeights {
		eng[string(name)] = w
	}
	return &Config{
		Scoring:       *pipeline.DefaultConfig(),
		Modifiers:     *modifiers.DefaultConfig(),
		Confluence:    *confluence.DefaultConfig(),
		Tiers:         *tier.DefaultConfig(),
		Concentration: *concentration.DefaultConfig(),
		Weights: WeightsConfig{
			Engine:      eng,
			Bounds:      weights.DefaultBounds(),
			SnapshotDir: "data/weights",
		},
		Ledger: LedgerConfig{
			Backend:     "jsonl",
			Dir:         "data/ledger",
			RedisPrefix: "pickledger",
		},
		Grading:   *grading.DefaultConfig(),
		Scheduler: *scheduler.DefaultConfig(),
		HTTP:      HTTPConfig{Addr: ":8085"},
	}
}

// InvariantError reports configuration that would violate a pipeline
// invariant. Startup refuses rather than running with it.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return "config invariant violation: " + e.Reason
}

// Load reads YAML over the defaults and validates. A missing path
// returns pure defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	// The tier gates substitute the same baseline composition does;
	// there is one knob for it, under scoring.
	cfg.Tiers.InactiveBaseline = cfg.Scoring.InactiveBaseline
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate runs struct tag validation plus the cross-field invariants
// tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	sum := 0.0
	for _, w := range c.Weights.Engine {
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return &InvariantError{Reason: fmt.Sprintf("engine weights sum to %.12f, must equal 1.0", sum)}
	}
	if c.Weights.Bounds.WeightFloor >= c.Weights.Bounds.WeightCeiling {
		return &InvariantError{Reason: "weight floor must be below ceiling"}
	}
	if c.Tiers.EdgeLeanThreshold > c.Tiers.GoldStarThreshold {
		return &InvariantError{Reason: "edge lean threshold above gold star threshold"}
	}
	if c.Tiers.MonitorThreshold > c.Tiers.EdgeLeanThreshold {
		return &InvariantError{Reason: "monitor threshold above edge lean threshold"}
	}
	if c.Concentration.PropFloor > c.Concentration.GameFloor {
		return &InvariantError{Reason: "prop floor above game floor"}
	}
	if c.Ledger.Backend == "postgres" && c.Ledger.DSN == "" {
		return &InvariantError{Reason: "postgres ledger requires a dsn"}
	}
	return nil
}

// StartupWeights builds the version-1 weight set from config.
func (c *Config) StartupWeights() *weights.Set {
	set := weights.DefaultSet()
	for name, w := range c.Weights.Engine {
		set.EngineWeights[engine.Name(name)] = w
	}
	return set
}
