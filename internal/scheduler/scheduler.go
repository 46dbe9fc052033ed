package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/grading"
)

// Config sets the fixed cadences. Grading runs often to catch concluded
// events; learning runs on a daily cycle.
type Config struct {
	GradingInterval  time.Duration `yaml:"grading_interval"`
	LearningInterval time.Duration `yaml:"learning_interval"`
}

// DefaultConfig returns production cadences.
func DefaultConfig() *Config {
	return &Config{
		GradingInterval:  15 * time.Minute,
		LearningInterval: 24 * time.Hour,
	}
}

// Scheduler drives the grading engine on its own clock, fully decoupled
// from request traffic. A failed cycle is logged and retried on the
// next tick; it never stops the loop.
type Scheduler struct {
	cfg    *Config
	engine *grading.Engine
}

// New creates a scheduler, falling back to default cadences on nil.
func New(cfg *Config, engine *grading.Engine) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Scheduler{cfg: cfg, engine: engine}
}

// Run blocks until the context is canceled, firing grading and learning
// on their intervals. Grading runs an immediate first pass on startup
// so a restarted process catches up without waiting a full interval.
func (s *Scheduler) Run(ctx context.Context) error {
	gradeTicker := time.NewTicker(s.cfg.GradingInterval)
	defer gradeTicker.Stop()
	learnTicker := time.NewTicker(s.cfg.LearningInterval)
	defer learnTicker.Stop()

	s.runGrading(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-gradeTicker.C:
			s.runGrading(ctx)
		case <-learnTicker.C:
			s.runLearning(ctx)
		}
	}
}

func (s *Scheduler) runGrading(ctx context.Context) {
	if _, err := s.engine.RunCycle(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("grading cycle failed, will retry next tick")
	}
}

func (s *Scheduler) runLearning(ctx context.Context) {
	if _, err := s.engine.RunLearning(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("learning pass failed, will retry next tick")
	}
}
