package concentration

import (
	"fmt"
	"sort"
	"strings"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/pick"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/tier"
)

// Config shapes one request's output: market floors, concentration
// caps, and the persist allow-list enforced at the output boundary.
// Game floors sit above prop floors since the markets differ in
// variance.
type Config struct {
	GameFloor float64 `yaml:"game_floor"`
	PropFloor float64 `yaml:"prop_floor"`

	MaxPerMatchup     int `yaml:"max_per_matchup"`
	MaxPerSportPerDay int `yaml:"max_per_sport_per_day"`
	MaxPropsPerPlayer int `yaml:"max_props_per_player"`
}

// DefaultConfig returns production concentration settings.
func DefaultConfig() *Config {
	return &Config{
		GameFloor:         6.0,
		PropFloor:         5.5,
		MaxPerMatchup:     3,
		MaxPerSportPerDay: 8,
		MaxPropsPerPlayer: 1,
	}
}

// Rejection explains why one candidate was dropped from the output.
type Rejection struct {
	CandidateKey string `json:"candidate_key"`
	Code         string `json:"code"`
	Text         string `json:"text"`
}

// Filter applies batch-relative output shaping. It requires the whole
// batch: caps are relative to everything scored for the slate, so the
// caller must barrier on all candidates finishing first.
type Filter struct {
	cfg     *Config
	tierCfg *tier.Config
}

// NewFilter creates a filter, falling back to defaults on nil configs.
func NewFilter(cfg *Config, tierCfg *tier.Config) *Filter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if tierCfg == nil {
		tierCfg = tier.DefaultConfig()
	}
	return &Filter{cfg: cfg, tierCfg: tierCfg}
}

// Apply runs the shaping steps in order: dedup by candidate key keeping
// the highest score, market floors, concentration caps by descending
// score, then the output-boundary strip of internal-only tiers. All
// ordering ties break by lexicographic candidate key for determinism.
func (f *Filter) Apply(batch []*pick.Scored) ([]*pick.Scored, []Rejection) {
	var rejections []Rejection

	kept := f.dedupe(batch, &rejections)
	sortDeterministic(kept)
	kept = f.applyFloors(kept, &rejections)
	kept = f.applyCaps(kept, &rejections)
	kept = f.stripInternal(kept, &rejections)

	return kept, rejections
}

// dedupe keeps the highest-scoring instance per candidate key.
func (f *Filter) dedupe(batch []*pick.Scored, rejections *[]Rejection) []*pick.Scored {
	best := make(map[string]*pick.Scored, len(batch))
	order := make([]string, 0, len(batch))
	for _, s := range batch {
		key := pick.NormalizeKey(s.Candidate.CandidateKey)
		cur, seen := best[key]
		if !seen {
			best[key] = s
			order = append(order, key)
			continue
		}
		loser := s
		if s.FinalScore > cur.FinalScore {
			best[key] = s
			loser = cur
		}
		*rejections = append(*rejections, Rejection{
			CandidateKey: loser.Candidate.CandidateKey,
			Code:         "duplicate",
			Text:         fmt.Sprintf("duplicate of %s, lower final score %.2f", key, loser.FinalScore),
		})
	}
	out := make([]*pick.Scored, 0, len(best))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

func (f *Filter) applyFloors(batch []*pick.Scored, rejections *[]Rejection) []*pick.Scored {
	out := batch[:0]
	for _, s := range batch {
		floor := f.cfg.GameFloor
		if s.Candidate.MarketKind == pick.Prop {
			floor = f.cfg.PropFloor
		}
		if s.FinalScore < floor {
			*rejections = append(*rejections, Rejection{
				CandidateKey: s.Candidate.CandidateKey,
				Code:         "below_market_floor",
				Text:         fmt.Sprintf("final score %.2f below %s floor %.2f", s.FinalScore, s.Candidate.MarketKind, floor),
			})
			continue
		}
		out = append(out, s)
	}
	return out
}

// applyCaps walks candidates in descending-score order so the best
// survivors win each cap.
func (f *Filter) applyCaps(batch []*pick.Scored, rejections *[]Rejection) []*pick.Scored {
	perMatchup := make(map[string]int)
	perSport := make(map[string]int)
	perPlayer := make(map[string]int)

	out := batch[:0]
	for _, s := range batch {
		c := s.Candidate
		matchupKey := strings.ToLower(c.Sport + "|" + c.Matchup)
		sportKey := strings.ToLower(c.Sport)
		playerKey := strings.ToLower(c.Sport + "|" + c.Player)

		if f.cfg.MaxPerMatchup > 0 && perMatchup[matchupKey] >= f.cfg.MaxPerMatchup {
			*rejections = append(*rejections, Rejection{
				CandidateKey: c.CandidateKey,
				Code:         "matchup_cap",
				Text:         fmt.Sprintf("matchup %s already at cap %d", c.Matchup, f.cfg.MaxPerMatchup),
			})
			continue
		}
		if f.cfg.MaxPerSportPerDay > 0 && perSport[sportKey] >= f.cfg.MaxPerSportPerDay {
			*rejections = append(*rejections, Rejection{
				CandidateKey: c.CandidateKey,
				Code:         "sport_cap",
				Text:         fmt.Sprintf("sport %s already at daily cap %d", c.Sport, f.cfg.MaxPerSportPerDay),
			})
			continue
		}
		if c.MarketKind == pick.Prop && f.cfg.MaxPropsPerPlayer > 0 &&
			perPlayer[playerKey] >= f.cfg.MaxPropsPerPlayer {
			*rejections = append(*rejections, Rejection{
				CandidateKey: c.CandidateKey,
				Code:         "player_cap",
				Text:         fmt.Sprintf("player %s already at prop cap %d", c.Player, f.cfg.MaxPropsPerPlayer),
			})
			continue
		}

		perMatchup[matchupKey]++
		perSport[sportKey]++
		if c.MarketKind == pick.Prop {
			perPlayer[playerKey]++
		}
		out = append(out, s)
	}
	return out
}

// stripInternal enforces the output boundary: MONITOR and PASS exist
// for audit only and never leave the pipeline, even in debug views.
func (f *Filter) stripInternal(batch []*pick.Scored, rejections *[]Rejection) []*pick.Scored {
	out := batch[:0]
	for _, s := range batch {
		if !f.tierCfg.Persistable(s.Tier.Tier) {
			*rejections = append(*rejections, Rejection{
				CandidateKey: s.Candidate.CandidateKey,
				Code:         "internal_tier",
				Text:         fmt.Sprintf("tier %s is internal-only", s.Tier.Tier),
			})
			continue
		}
		out = append(out, s)
	}
	return out
}

// sortDeterministic orders by final score descending, then candidate
// key ascending so cap boundaries are reproducible.
func sortDeterministic(batch []*pick.Scored) {
	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].FinalScore != batch[j].FinalScore {
			return batch[i].FinalScore > batch[j].FinalScore
		}
		return pick.NormalizeKey(batch[i].Candidate.CandidateKey) < pick.NormalizeKey(batch[j].Candidate.CandidateKey)
	})
}
