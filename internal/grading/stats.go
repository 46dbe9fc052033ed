package grading

import (
	"context"
	"time"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/modifiers"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/pick"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/tier"
)

// BucketStats aggregates graded picks sharing one dimension value.
type BucketStats struct {
	Picks   int     `json:"picks"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Pushes  int     `json:"pushes"`
	HitRate float64 `json:"hit_rate"`
	ROI     float64 `json:"roi"`
}

// EngineSignal measures how one engine's scores separated wins from
// losses over the window. Edge near zero means the engine carried no
// predictive signal in the sample.
type EngineSignal struct {
	AvgScoreWins   float64 `json:"avg_score_wins"`
	AvgScoreLosses float64 `json:"avg_score_losses"`
	Edge           float64 `json:"edge"` // wins avg minus losses avg
}

// ModifierSignal correlates one modifier firing with correctness.
type ModifierSignal struct {
	Applied int     `json:"applied"`
	Wins    int     `json:"wins"`
	HitRate float64 `json:"hit_rate"`
}

// Performance is the aggregated view one learning pass works from.
type Performance struct {
	WindowStart time.Time                      `json:"window_start"`
	WindowEnd   time.Time                      `json:"window_end"`
	Decisive    int                            `json:"decisive"` // graded wins+losses
	ByTier      map[tier.Tier]*BucketStats     `json:"by_tier"`
	BySport     map[string]*BucketStats        `json:"by_sport"`
	ByEngine    map[engine.Name]*EngineSignal  `json:"by_engine"`
	ByModifier  map[string]*ModifierSignal     `json:"by_modifier"`
}

// Aggregate joins the window's picks with their grades and rolls up
// performance by tier, sport, engine and modifier.
func (e *Engine) Aggregate(ctx context.Context, now time.Time) (*Performance, error) {
	windowStart := now.Add(-e.cfg.LearningWindow)

	picks, err := e.ledger.PicksSince(ctx, windowStart)
	if err != nil {
		return nil, err
	}
	grades, err := e.ledger.Grades(ctx, windowStart)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]pick.GradingResult, len(grades))
	for _, g := range grades {
		byID[g.PickID] = g
	}

	perf := &Performance{
		WindowStart: windowStart,
		WindowEnd:   now,
		ByTier:      make(map[tier.Tier]*BucketStats),
		BySport:     make(map[string]*BucketStats),
		ByEngine:    make(map[engine.Name]*EngineSignal),
		ByModifier:  make(map[string]*ModifierSignal),
	}
	winSums := make(map[engine.Name]float64)
	lossSums := make(map[engine.Name]float64)
	wins, losses := 0, 0

	for _, p := range picks {
		g, graded := byID[p.PickID]
		if !graded {
			continue
		}
		tierStats := bucket(perf.ByTier, p.PublishedTier)
		sportStats := bucket(perf.BySport, p.Sport)
		tierStats.Picks++
		sportStats.Picks++
		tierStats.ROI += g.ROI
		sportStats.ROI += g.ROI

		if !g.Decisive() {
			tierStats.Pushes++
			sportStats.Pushes++
			continue
		}
		perf.Decisive++
		if *g.Correct {
			wins++
			tierStats.Wins++
			sportStats.Wins++
		} else {
			losses++
			tierStats.Losses++
			sportStats.Losses++
		}

		for _, name := range engine.All {
			v := p.Scores.Get(name).Value
			if *g.Correct {
				winSums[name] += v
			} else {
				lossSums[name] += v
			}
		}
		for _, m := range p.Modifiers {
			if m.Status != modifiers.StatusApplied {
				continue
			}
			ms, ok := perf.ByModifier[m.Name]
			if !ok {
				ms = &ModifierSignal{}
				perf.ByModifier[m.Name] = ms
			}
			ms.Applied++
			if *g.Correct {
				ms.Wins++
			}
		}
	}

	for _, stats := range perf.ByTier {
		finalize(stats)
	}
	for _, stats := range perf.BySport {
		finalize(stats)
	}
	for name, ms := range perf.ByModifier {
		if ms.Applied > 0 {
			ms.HitRate = float64(ms.Wins) / float64(ms.Applied)
		}
		perf.ByModifier[name] = ms
	}
	for _, name := range engine.All {
		sig := &EngineSignal{}
		if wins > 0 {
			sig.AvgScoreWins = winSums[name] / float64(wins)
		}
		if losses > 0 {
			sig.AvgScoreLosses = lossSums[name] / float64(losses)
		}
		if wins > 0 && losses > 0 {
			sig.Edge = sig.AvgScoreWins - sig.AvgScoreLosses
		}
		perf.ByEngine[name] = sig
	}
	return perf, nil
}

func bucket[K comparable](m map[K]*BucketStats, key K) *BucketStats {
	s, ok := m[key]
	if !ok {
		s = &BucketStats{}
		m[key] = s
	}
	return s
}

func finalize(s *BucketStats) {
	decided := s.Wins + s.Losses
	if decided > 0 {
		s.HitRate = float64(s.Wins) / float64(decided)
	}
	if s.Picks > 0 {
		s.ROI /= float64(s.Picks)
	}
}
