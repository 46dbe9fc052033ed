package pick

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/confluence"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/modifiers"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/tier"
)

// MarketKind distinguishes game markets from player props. The two
// carry different variance, so concentration floors differ by kind.
type MarketKind string

const (
	Game MarketKind = "GAME"
	Prop MarketKind = "PROP"
)

// SlateDateFormat is the canonical day key for pick identity.
const SlateDateFormat = "2006-01-02"

// Candidate identifies one betting opportunity entering the pipeline.
// CandidateKey is stable across repeated computations of the same
// opportunity within a slate; pick identity derives from it.
type Candidate struct {
	Sport      string     `json:"sport"`
	MarketKind MarketKind `json:"market_kind"`
	Matchup    string     `json:"matchup"`
	Player     string     `json:"player,omitempty"` // props only
	Line       float64    `json:"line"`
	Side       string     `json:"side"`
	StartTime  time.Time  `json:"start_time"`

	CandidateKey string           `json:"candidate_key"`
	Scores       engine.ScoreSet  `json:"scores"`
	Inputs       modifiers.Inputs `json:"inputs"`
}

// Validate rejects a malformed candidate without failing its batch.
func (c *Candidate) Validate() error {
	if c.CandidateKey == "" {
		return fmt.Errorf("candidate missing candidate_key")
	}
	if c.MarketKind != Game && c.MarketKind != Prop {
		return fmt.Errorf("candidate %s: unknown market kind %q", c.CandidateKey, c.MarketKind)
	}
	if c.MarketKind == Prop && c.Player == "" {
		return fmt.Errorf("candidate %s: prop market without player", c.CandidateKey)
	}
	if err := c.Scores.Validate(); err != nil {
		return fmt.Errorf("candidate %s: %w", c.CandidateKey, err)
	}
	return nil
}

// MatchupOrPlayer is the display identity: the player for props, the
// matchup otherwise.
func (c *Candidate) MatchupOrPlayer() string {
	if c.MarketKind == Prop && c.Player != "" {
		return c.Player
	}
	return c.Matchup
}

// Scored is a candidate with its full score breakdown: everything a
// caller needs to render an explanation or re-derive the tier.
type Scored struct {
	Candidate Candidate `json:"candidate"`

	// Scores after pre-base adjustment, frozen before composition.
	AdjustedScores engine.ScoreSet    `json:"adjusted_scores"`
	BaseScore      float64            `json:"base_score"`
	BaseParts      map[string]float64 `json:"base_parts"`

	Modifiers  []modifiers.Result    `json:"modifiers"`
	Confluence confluence.Assessment `json:"confluence"`
	FinalScore float64               `json:"final_score"`
	Tier       tier.Assignment       `json:"tier"`

	WeightVersion int64           `json:"weight_version"`
	Reasons       []engine.Reason `json:"reasons"`

	// PersistFailed is set when the scored result was returned but the
	// ledger write for it failed; scoring and persistence are decoupled.
	PersistFailed bool   `json:"persist_failed,omitempty"`
	PersistError  string `json:"persist_error,omitempty"`
}

// ID computes the pick identity for a scored candidate on a slate date.
// The key is normalized first, so identity agrees with batch dedup no
// matter how a producer cased the key.
func ID(candidateKey string, slateDate string) string {
	sum := sha256.Sum256([]byte(NormalizeKey(candidateKey) + "|" + slateDate))
	return hex.EncodeToString(sum[:16])
}

// Pick is the immutable persisted snapshot of a candidate at the moment
// of publication. Created once per (candidate, day); never mutated; a
// later GradingResult is the only thing ever attached.
type Pick struct {
	PickID        string `json:"pick_id"`
	SlateDate     string `json:"slate_date"`
	PublishedTier tier.Tier `json:"published_tier"`
	Units         float64   `json:"units"`
	PublishedAt   time.Time `json:"published_at"`

	// Full snapshot, sufficient to re-derive the tier without
	// recomputation.
	Sport         string                `json:"sport"`
	MarketKind    MarketKind            `json:"market_kind"`
	Matchup       string                `json:"matchup"`
	Player        string                `json:"player,omitempty"`
	Line          float64               `json:"line"`
	Side          string                `json:"side"`
	StartTime     time.Time             `json:"start_time"`
	CandidateKey  string                `json:"candidate_key"`
	Scores        engine.ScoreSet       `json:"scores"`
	BaseScore     float64               `json:"base_score"`
	Modifiers     []modifiers.Result    `json:"modifiers"`
	Confluence    confluence.Assessment `json:"confluence"`
	FinalScore    float64               `json:"final_score"`
	Gates         []tier.GateCheck      `json:"gates"`
	WeightVersion int64                 `json:"weight_version"`
	Reasons       []engine.Reason       `json:"reasons"`
}

// FromScored snapshots a scored candidate into its persisted form.
func FromScored(s *Scored, slateDate string, now time.Time) Pick {
	return Pick{
		PickID:        ID(s.Candidate.CandidateKey, slateDate),
		SlateDate:     slateDate,
		PublishedTier: s.Tier.Tier,
		Units:         s.Tier.Units,
		PublishedAt:   now.UTC(),

		Sport:         s.Candidate.Sport,
		MarketKind:    s.Candidate.MarketKind,
		Matchup:       s.Candidate.Matchup,
		Player:        s.Candidate.Player,
		Line:          s.Candidate.Line,
		Side:          s.Candidate.Side,
		StartTime:     s.Candidate.StartTime,
		CandidateKey:  s.Candidate.CandidateKey,
		Scores:        s.AdjustedScores,
		BaseScore:     s.BaseScore,
		Modifiers:     s.Modifiers,
		Confluence:    s.Confluence,
		FinalScore:    s.FinalScore,
		Gates:         s.Tier.Gates,
		WeightVersion: s.WeightVersion,
		Reasons:       s.Reasons,
	}
}

// Outcome is the graded real-world result of a pick.
type Outcome string

const (
	OutcomeWon    Outcome = "WON"
	OutcomeLost   Outcome = "LOST"
	OutcomePush   Outcome = "PUSH"
	OutcomeVoided Outcome = "VOIDED"
)

// GradingResult records the resolved outcome for one pick. Correct is
// nil for pushes and voids, which carry no learning signal. One-to-one
// with Pick, append-only.
type GradingResult struct {
	PickID        string    `json:"pick_id"`
	ActualOutcome Outcome   `json:"actual_outcome"`
	Correct       *bool     `json:"correct"` // nil = unresolved/push/voided
	ROI           float64   `json:"roi"`
	GradedAt      time.Time `json:"graded_at"`
}

// Decisive reports whether the grade carries win/loss signal.
func (g GradingResult) Decisive() bool {
	return g.Correct != nil
}

// NormalizeKey lowercases and trims a candidate key so dedup and
// idempotency comparisons are stable across producers.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
