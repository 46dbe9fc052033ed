package grading

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/pick"
)

// ResolvedOutcome is the real-world result for one pick as reported by
// the external outcome collaborator. Settled is false while the event
// result is not final yet.
type ResolvedOutcome struct {
	Outcome pick.Outcome `json:"outcome"`
	ROI     float64      `json:"roi"`
	Settled bool         `json:"settled"`
}

// OutcomeResolver is the external collaborator that knows real-world
// results. The grading engine never computes outcomes itself.
type OutcomeResolver interface {
	Resolve(ctx context.Context, p pick.Pick) (*ResolvedOutcome, error)
}

// ResolverGuardConfig bounds calls to the external resolver.
type ResolverGuardConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	MaxRetries        uint64        `yaml:"max_retries"`
	BreakerFailures   uint32        `yaml:"breaker_failures"`
	BreakerCooldown   time.Duration `yaml:"breaker_cooldown"`
}

// DefaultResolverGuardConfig returns production guard settings.
func DefaultResolverGuardConfig() ResolverGuardConfig {
	return ResolverGuardConfig{
		RequestsPerSecond: 5,
		Burst:             10,
		MaxRetries:        3,
		BreakerFailures:   5,
		BreakerCooldown:   30 * time.Second,
	}
}

// guardedResolver wraps the external resolver with a rate limiter,
// retry with exponential backoff, and a circuit breaker. An open
// breaker fails fast; retrying into a tripped breaker is pointless.
type guardedResolver struct {
	inner   OutcomeResolver
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	retries uint64
}

// Guard wraps a resolver with the configured protections.
func Guard(inner OutcomeResolver, cfg ResolverGuardConfig) OutcomeResolver {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "outcome_resolver",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		Timeout: cfg.BreakerCooldown,
	})
	return &guardedResolver{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: breaker,
		retries: cfg.MaxRetries,
	}
}

func (g *guardedResolver) Resolve(ctx context.Context, p pick.Pick) (*ResolvedOutcome, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var out *ResolvedOutcome
	op := func() error {
		res, err := g.breaker.Execute(func() (interface{}, error) {
			return g.inner.Resolve(ctx, p)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = res.(*ResolvedOutcome)
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), g.retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return out, nil
}
