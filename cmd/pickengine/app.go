package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/concentration"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/config"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/confluence"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/grading"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/ledger"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/modifiers"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/pipeline"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/telemetry"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/tier"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/weights"
)

// app bundles the wired components behind each command.
type app struct {
	cfg     *config.Config
	store   *weights.Store
	ledger  ledger.Ledger
	metrics *telemetry.Metrics
	batch   *pipeline.BatchScorer
}

// buildApp loads config and wires the pipeline. withLedger=false keeps
// dry runs from touching persistence at all.
func buildApp(ctx context.Context, withLedger bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	store, err := weights.OpenStore(cfg.Weights.SnapshotDir, cfg.StartupWeights(), cfg.Weights.Bounds)
	if err != nil {
		return nil, fmt.Errorf("open weight store: %w", err)
	}

	var lg ledger.Ledger
	if withLedger {
		lg, err = openLedger(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	metrics := telemetry.New(prometheus.DefaultRegisterer)
	metrics.WeightVersion.Set(float64(store.Current().Version))

	scorer := pipeline.NewScorer(
		&cfg.Scoring,
		modifiers.NewPipeline(&cfg.Modifiers),
		confluence.NewCalculator(&cfg.Confluence),
		tier.NewAssignor(&cfg.Tiers),
	)
	filter := concentration.NewFilter(&cfg.Concentration, &cfg.Tiers)

	return &app{
		cfg:     cfg,
		store:   store,
		ledger:  lg,
		metrics: metrics,
		batch:   pipeline.NewBatchScorer(scorer, store, filter, lg, metrics),
	}, nil
}

func openLedger(ctx context.Context, cfg *config.Config) (ledger.Ledger, error) {
	switch cfg.Ledger.Backend {
	case "postgres":
		return ledger.NewPostgres(ctx, cfg.Ledger.DSN)
	default:
		var claimer ledger.Claimer
		if cfg.Ledger.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{Addr: cfg.Ledger.RedisAddr})
			if err := client.Ping(ctx).Err(); err != nil {
				return nil, fmt.Errorf("redis claim store unreachable: %w", err)
			}
			claimer = ledger.NewRedisClaimer(client, cfg.Ledger.RedisPrefix)
			log.Info().Str("addr", cfg.Ledger.RedisAddr).Msg("using redis claim store")
		}
		return ledger.NewJSONL(cfg.Ledger.Dir, claimer)
	}
}

func (a *app) gradingEngine(outcomesPath string) *grading.Engine {
	return grading.NewEngine(&a.cfg.Grading, a.ledger, grading.NewFileResolver(outcomesPath), a.store, a.metrics)
}

func (a *app) close() {
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			log.Warn().Err(err).Msg("close ledger")
		}
	}
}
