package modifiers

import (
	"fmt"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/engine"
)

// Pipeline runs the ordered modifier stages. Pre-base modifiers adjust
// individual engine scores and are frozen before composition; post-base
// modifiers are summed under the shared total boost cap; the
// environmental family runs last and is the only stage allowed to scale
// rather than add.
type Pipeline struct {
	cfg *Config
}

// NewPipeline creates a pipeline, falling back to defaults on nil config.
func NewPipeline(cfg *Config) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Pipeline{cfg: cfg}
}

// Config exposes the active configuration (read-only use).
func (p *Pipeline) Config() *Config {
	return p.cfg
}

// ApplyPreBase runs the pre-base modifiers and returns the adjusted
// score set plus their audit results. The returned set is what the base
// composer must consume; the original is not mutated.
func (p *Pipeline) ApplyPreBase(set engine.ScoreSet, in Inputs) (engine.ScoreSet, []Result) {
	results := make([]Result, 0, 2)

	set, r := p.lineupConfidence(set, in)
	results = append(results, r)

	set, r = p.lineDifficulty(set, in)
	results = append(results, r)

	return set, results
}

// lineupConfidence shrinks the AI score when lineup certainty is low.
// Full confidence leaves the score untouched; zero confidence scales it
// by the configured minimum multiplier.
func (p *Pipeline) lineupConfidence(set engine.ScoreSet, in Inputs) (engine.ScoreSet, Result) {
	if in.LineupConfidence == nil {
		return set, unavailable(NameLineupConfidence, "lineup/injury")
	}
	conf := clamp(*in.LineupConfidence, 0, 1)
	if !set.AI.Active {
		return set, notRelevant(NameLineupConfidence, "ai_inactive", "ai engine inactive, nothing to adjust")
	}
	mult := p.cfg.LineupMinMultiplier + (1-p.cfg.LineupMinMultiplier)*conf
	old := set.AI.Value
	adjusted := clamp(old*mult, engine.MinScore, engine.MaxScore)
	set.AI.Value = adjusted
	delta := adjusted - old
	if delta == 0 {
		return set, notRelevant(NameLineupConfidence, "full_confidence", "lineup fully confirmed, no adjustment")
	}
	return set, applied(NameLineupConfidence, delta, "lineup_adjustment",
		fmt.Sprintf("lineup confidence %.0f%% scaled ai %.2f -> %.2f", conf*100, old, adjusted))
}

// lineDifficulty shifts the research score for unusually tough or soft
// lines. The signed input is clamped to [-1, 1] and scaled by the
// configured shift cap.
func (p *Pipeline) lineDifficulty(set engine.ScoreSet, in Inputs) (engine.ScoreSet, Result) {
	if in.LineDifficulty == nil {
		return set, unavailable(NameLineDifficulty, "line difficulty")
	}
	if !set.Research.Active {
		return set, notRelevant(NameLineDifficulty, "research_inactive", "research engine inactive, nothing to adjust")
	}
	shift := clamp(*in.LineDifficulty, -1, 1) * p.cfg.LineDifficultyShift
	if shift == 0 {
		return set, notRelevant(NameLineDifficulty, "neutral_line", "line difficulty neutral")
	}
	old := set.Research.Value
	set.Research.Value = clamp(old+shift, engine.MinScore, engine.MaxScore)
	return set, applied(NameLineDifficulty, set.Research.Value-old, "line_adjustment",
		fmt.Sprintf("line difficulty shifted research %.2f -> %.2f", old, set.Research.Value))
}

// ApplyPostBase evaluates the post-base additive modifiers, clamps each
// to its own cap, clamps the sum to the shared total boost cap, and
// returns the adjusted score. The confluence boost is produced by the
// confluence calculator and passed in as one member of the family so it
// is never double counted against a generic alignment boost.
func (p *Pipeline) ApplyPostBase(base float64, in Inputs, confluenceBoost Result) (float64, []Result) {
	results := []Result{
		confluenceBoost,
		p.simulationBoost(in),
		p.expertConsensus(in),
		p.sharpMoney(in),
		p.correlationAdjustment(in),
		p.hookDiscipline(in),
	}

	total := 0.0
	for _, r := range results {
		total += r.Value
	}
	total = clamp(total, -p.cfg.TotalBoostCap, p.cfg.TotalBoostCap)

	return base + total, results
}

func (p *Pipeline) simulationBoost(in Inputs) Result {
	if in.SimWinProb == nil {
		return unavailable(NameSimulationBoost, "simulation")
	}
	prob := clamp(*in.SimWinProb, 0, 1)
	if prob < p.cfg.SimEdgeThreshold {
		return notRelevant(NameSimulationBoost, "no_sim_edge",
			fmt.Sprintf("sim win prob %.1f%% below %.1f%% edge threshold", prob*100, p.cfg.SimEdgeThreshold*100))
	}
	span := 1 - p.cfg.SimEdgeThreshold
	value := clamp(p.cfg.SimulationBoostCap*(prob-p.cfg.SimEdgeThreshold)/span, 0, p.cfg.SimulationBoostCap)
	return applied(NameSimulationBoost, value, "sim_edge",
		fmt.Sprintf("simulation win prob %.1f%%", prob*100))
}

func (p *Pipeline) expertConsensus(in Inputs) Result {
	if in.ExpertConsensus == nil {
		return unavailable(NameExpertConsensus, "expert consensus")
	}
	pct := clamp(*in.ExpertConsensus, 0, 100)
	if pct < p.cfg.ExpertThresholdPct {
		return notRelevant(NameExpertConsensus, "no_consensus",
			fmt.Sprintf("expert consensus %.0f%% below %.0f%%", pct, p.cfg.ExpertThresholdPct))
	}
	span := 100 - p.cfg.ExpertThresholdPct
	value := clamp(p.cfg.ExpertBoostCap*(pct-p.cfg.ExpertThresholdPct)/span, 0, p.cfg.ExpertBoostCap)
	return applied(NameExpertConsensus, value, "expert_consensus",
		fmt.Sprintf("expert consensus %.0f%%", pct))
}

func (p *Pipeline) sharpMoney(in Inputs) Result {
	if in.SharpMoneyPct == nil {
		return unavailable(NameSharpMoney, "sharp money split")
	}
	pct := clamp(*in.SharpMoneyPct, 0, 100)
	if pct < p.cfg.SharpThresholdPct {
		return notRelevant(NameSharpMoney, "no_sharp_side",
			fmt.Sprintf("sharp handle %.0f%% below %.0f%%", pct, p.cfg.SharpThresholdPct))
	}
	span := 100 - p.cfg.SharpThresholdPct
	value := clamp(p.cfg.SharpBoostCap*(pct-p.cfg.SharpThresholdPct)/span, 0, p.cfg.SharpBoostCap)
	return applied(NameSharpMoney, value, "sharp_side",
		fmt.Sprintf("sharp money %.0f%% on this side", pct))
}

func (p *Pipeline) correlationAdjustment(in Inputs) Result {
	if in.CorrelatedLegs == nil {
		return unavailable(NameCorrelation, "correlation exposure")
	}
	legs := *in.CorrelatedLegs
	if legs <= 0 {
		return notRelevant(NameCorrelation, "uncorrelated", "no correlated exposure on slate")
	}
	value := clamp(-p.cfg.CorrelationStep*float64(legs), -p.cfg.CorrelationCap, 0)
	return applied(NameCorrelation, value, "correlated_exposure",
		fmt.Sprintf("%d correlated legs already on slate", legs))
}

// hookDiscipline penalizes lines sitting inside the hook window around a
// key number, where half-point moves swing outcomes hardest.
func (p *Pipeline) hookDiscipline(in Inputs) Result {
	if in.KeyNumberDist == nil {
		return unavailable(NameHookDiscipline, "key number distance")
	}
	dist := *in.KeyNumberDist
	if dist < 0 {
		dist = -dist
	}
	if dist >= p.cfg.HookWindow {
		return notRelevant(NameHookDiscipline, "off_key_number",
			fmt.Sprintf("line %.1f pts off nearest key number", dist))
	}
	value := -p.cfg.HookPenaltyCap * (1 - dist/p.cfg.HookWindow)
	return applied(NameHookDiscipline, value, "hook_exposure",
		fmt.Sprintf("line %.1f pts from key number", dist))
}

// ApplyEnvironmental runs the multiplicative severity family against the
// fully-composed score. The combined multiplier never drops below the
// configured floor, and this is the only stage that scales.
func (p *Pipeline) ApplyEnvironmental(score float64, in Inputs) (float64, []Result) {
	results := []Result{
		p.geomagnetic(in),
		p.weather(in),
	}

	mult := 1.0
	for _, r := range results {
		mult *= 1 + r.Value
	}
	if mult < p.cfg.EnvironmentalFloor {
		mult = p.cfg.EnvironmentalFloor
	}
	return score * mult, results
}

// geomagnetic reduces the score during elevated planetary K index.
// Value is the signed scaling effect (multiplier minus one).
func (p *Pipeline) geomagnetic(in Inputs) Result {
	if in.GeomagneticKp == nil {
		return unavailable(NameGeomagnetic, "geomagnetic index")
	}
	kp := *in.GeomagneticKp
	if kp < p.cfg.GeomagneticKpThreshold {
		return notRelevant(NameGeomagnetic, "quiet_field",
			fmt.Sprintf("Kp %.1f below storm threshold %.1f", kp, p.cfg.GeomagneticKpThreshold))
	}
	effect := -p.cfg.GeomagneticStep * (kp - p.cfg.GeomagneticKpThreshold + 1)
	floor := p.cfg.EnvironmentalFloor - 1
	effect = clamp(effect, floor, 0)
	return applied(NameGeomagnetic, effect, "geomagnetic_storm",
		fmt.Sprintf("Kp %.1f geomagnetic storm, scaling by %.2f", kp, 1+effect))
}

func (p *Pipeline) weather(in Inputs) Result {
	if in.WeatherSeverity == nil {
		return unavailable(NameWeather, "weather")
	}
	sev := clamp(*in.WeatherSeverity, 0, 1)
	if sev < p.cfg.WeatherThreshold {
		return notRelevant(NameWeather, "benign_weather",
			fmt.Sprintf("weather severity %.2f below %.2f", sev, p.cfg.WeatherThreshold))
	}
	span := 1 - p.cfg.WeatherThreshold
	effect := -p.cfg.WeatherMaxReduction * (sev - p.cfg.WeatherThreshold) / span
	return applied(NameWeather, effect, "severe_weather",
		fmt.Sprintf("weather severity %.2f, scaling by %.2f", sev, 1+effect))
}
