package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/concentration"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/ledger"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/pick"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/telemetry"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/weights"
)

// BatchRequest is one slate's worth of candidates, already time-window
// filtered upstream.
type BatchRequest struct {
	SlateDate  string           `json:"slate_date"` // YYYY-MM-DD
	Candidates []pick.Candidate `json:"candidates"`
}

// Skipped records one candidate rejected before scoring completed.
type Skipped struct {
	CandidateKey string `json:"candidate_key"`
	Reason       string `json:"reason"`
}

// BatchResult is everything a caller sees for one request: the filtered
// picks, the shaping rejections, and a summary of skipped candidates.
// Persistence failures are flagged per pick and never remove the scored
// result.
type BatchResult struct {
	RequestID     string                    `json:"request_id"`
	SlateDate     string                    `json:"slate_date"`
	WeightVersion int64                     `json:"weight_version"`
	Picks         []*pick.Scored            `json:"picks"`
	Rejections    []concentration.Rejection `json:"rejections"`
	Skipped       []Skipped                 `json:"skipped"`
	ScoredCount   int                       `json:"scored_count"`
}

// BatchScorer fans candidates over a worker pool, barriers on the whole
// batch, shapes the output and persists the survivors. Scoring is
// embarrassingly parallel: each run is pure over (candidate, weight
// snapshot); only the concentration filter needs the full batch.
type BatchScorer struct {
	scorer  *Scorer
	store   *weights.Store
	filter  *concentration.Filter
	ledger  ledger.Ledger
	metrics *telemetry.Metrics
	workers int
}

// NewBatchScorer wires the batch pipeline. The ledger may be nil for
// score-only (dry run) use; metrics may be nil in tests.
func NewBatchScorer(scorer *Scorer, store *weights.Store, filter *concentration.Filter, lg ledger.Ledger, metrics *telemetry.Metrics) *BatchScorer {
	workers := scorer.cfg.Workers
	if workers <= 0 {
		workers = 8
	}
	return &BatchScorer{
		scorer:  scorer,
		store:   store,
		filter:  filter,
		ledger:  lg,
		metrics: metrics,
		workers: workers,
	}
}

// ScoreBatch scores every candidate against one weight snapshot,
// isolates per-candidate failures, applies the concentration filter
// once all workers finish, then appends surviving picks to the ledger.
func (b *BatchScorer) ScoreBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	start := time.Now()
	requestID := uuid.NewString()
	ws := b.store.Current()

	result := &BatchResult{
		RequestID:     requestID,
		SlateDate:     req.SlateDate,
		WeightVersion: ws.Version,
	}
	if req.SlateDate == "" {
		result.SlateDate = time.Now().UTC().Format(pick.SlateDateFormat)
	}

	scored := make([]*pick.Scored, len(req.Candidates))
	errs := make([]error, len(req.Candidates))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				scored[i], errs[i] = b.scorer.Score(req.Candidates[i], ws)
			}
		}()
	}
	for i := range req.Candidates {
		jobs <- i
	}
	close(jobs)
	// Full-batch barrier: caps are batch-relative, so shaping cannot
	// start until every candidate has finished.
	wg.Wait()

	ok := make([]*pick.Scored, 0, len(req.Candidates))
	for i := range req.Candidates {
		if errs[i] != nil {
			result.Skipped = append(result.Skipped, Skipped{
				CandidateKey: req.Candidates[i].CandidateKey,
				Reason:       errs[i].Error(),
			})
			if b.metrics != nil {
				b.metrics.CandidatesSkipped.Inc()
			}
			continue
		}
		ok = append(ok, scored[i])
		if b.metrics != nil {
			b.metrics.CandidatesScored.Inc()
		}
	}
	result.ScoredCount = len(ok)

	result.Picks, result.Rejections = b.filter.Apply(ok)

	b.persist(ctx, result)

	if b.metrics != nil {
		b.metrics.BatchDuration.Observe(time.Since(start).Seconds())
		b.metrics.WeightVersion.Set(float64(ws.Version))
		for _, s := range result.Picks {
			b.metrics.PicksByTier.WithLabelValues(string(s.Tier.Tier)).Inc()
		}
	}

	log.Info().
		Str("request_id", requestID).
		Str("slate_date", result.SlateDate).
		Int64("weight_version", ws.Version).
		Int("candidates", len(req.Candidates)).
		Int("scored", result.ScoredCount).
		Int("picks", len(result.Picks)).
		Int("skipped", len(result.Skipped)).
		Dur("elapsed", time.Since(start)).
		Msg("batch scored")

	return result, nil
}

// persist appends each surviving pick; a failed write flags the pick
// but never fails the batch, and duplicates from retried requests are
// silent no-ops.
func (b *BatchScorer) persist(ctx context.Context, result *BatchResult) {
	if b.ledger == nil {
		return
	}
	now := time.Now()
	for _, s := range result.Picks {
		p := pick.FromScored(s, result.SlateDate, now)
		created, err := b.ledger.Append(ctx, p)
		switch {
		case err != nil:
			s.PersistFailed = true
			s.PersistError = err.Error()
			if b.metrics != nil {
				b.metrics.LedgerAppends.WithLabelValues("error").Inc()
			}
			log.Error().Err(err).Str("pick_id", p.PickID).Msg("ledger append failed")
		case created:
			if b.metrics != nil {
				b.metrics.LedgerAppends.WithLabelValues("created").Inc()
			}
		default:
			if b.metrics != nil {
				b.metrics.LedgerAppends.WithLabelValues("duplicate").Inc()
			}
		}
	}
}
