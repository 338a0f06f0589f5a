package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrDataInsufficient is returned when the series is too short for the
// threshold scan
var ErrDataInsufficient = errors.New("insufficient data for threshold estimate")

// Gate flags reported on threshold candidates
const (
	FlagRamp     = "ramp"
	FlagHRFlat   = "hr_flat"
	FlagEffFlat  = "efficiency_plateau"
	FlagConcave  = "concave"
	FlagInBand   = "in_band"
	FlagFallback = "fallback"
)

// ThresholdConfig holds the VT2 heuristics. The gate thresholds and the
// percentile band are empirical and meant to be tuned.
type ThresholdConfig struct {
	WindowSamples    int `json:"window_samples"`
	MinWindowSamples int `json:"min_window_samples"`

	RampMin            float64 `json:"ramp_min_w_per_min"`      // power ramp, W/min
	HRFlatMax          float64 `json:"hr_flat_max_bpm_per_min"` // |HR slope|, bpm/min
	EffSlopeMax        float64 `json:"efficiency_slope_max"`    // |d efficiency / d power|, 1/W
	CurvatureThreshold float64 `json:"curvature_threshold"`     // curvature must be <= -threshold

	TauPower      float64 `json:"tau_power_s"`
	TauHR         float64 `json:"tau_hr_s"`
	TauEfficiency float64 `json:"tau_efficiency_s"`

	BandLowPct  float64 `json:"band_low_pct"`
	BandHighPct float64 `json:"band_high_pct"`

	GateWeight     float64 `json:"gate_weight"`
	BonusWeight    float64 `json:"bonus_weight"`
	ScoreTolerance float64 `json:"score_tolerance"`
}

// DefaultThresholdConfig returns the stock heuristics
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{
		WindowSamples:      300,
		MinWindowSamples:   10,
		RampMin:            2.0,
		HRFlatMax:          0.5,
		EffSlopeMax:        0.005,
		CurvatureThreshold: 1e-7,
		TauPower:           5,
		TauHR:              5,
		TauEfficiency:      5,
		BandLowPct:         70,
		BandHighPct:        95,
		GateWeight:         1.0,
		BonusWeight:        0.25,
		ScoreTolerance:     1e-6,
	}
}

// ThresholdCandidate is the diagnostic record of one scanned window.
// Means and slopes are over the smoothed series.
type ThresholdCandidate struct {
	StartS     float64 `json:"start_s"`
	EndS       float64 `json:"end_s"`
	StartIndex int     `json:"start_index"`
	EndIndex   int     `json:"end_index"` // exclusive

	MeanPower      float64 `json:"mean_power"`
	MeanHR         float64 `json:"mean_hr"`
	MeanEfficiency float64 `json:"mean_efficiency"`

	PowerRampPerMin float64 `json:"power_ramp_per_min"`
	HRSlopePerMin   float64 `json:"hr_slope_per_min"`
	EffSlopePerWatt Num     `json:"efficiency_slope_per_watt"`
	Curvature       Num     `json:"curvature"`

	Score  float64  `json:"score"`
	Flags  []string `json:"flags"`
	InBand bool     `json:"in_band"`
}

// CenterIndex returns the sample index at the middle of the window
func (c ThresholdCandidate) CenterIndex() int {
	return c.StartIndex + (c.EndIndex-c.StartIndex)/2
}

// ThresholdEstimate is the selected candidate plus a confidence in [0, 1]
type ThresholdEstimate struct {
	ThresholdCandidate
	Confidence float64 `json:"confidence"`
	BandLowW   float64 `json:"band_low_w"`
	BandHighW  float64 `json:"band_high_w"`
	Fallback   bool    `json:"fallback"` // no candidate inside the power band
}

// EstimateThreshold scans fixed-length windows of the EWMA-smoothed power,
// HR and efficiency series for a VT2-like plateau: power still ramping,
// HR flat, efficiency no longer rising with power and a concave
// efficiency-power curve. Each passing gate adds GateWeight plus up to
// BonusWeight scaled by its margin.
//
// Candidates are returned ranked by score (earlier windows first on ties).
// The estimate is the earliest candidate within ScoreTolerance of the best
// whose mean power lies in the [BandLowPct, BandHighPct] percentile band of
// the smoothed power, or the best candidate overall when none does.
func EstimateThreshold(ctx context.Context, samples []Sample, ftp, hrThreshold float64, cfg ThresholdConfig) (ThresholdEstimate, []ThresholdCandidate, error) {
	if err := validateSeries(samples); err != nil {
		return ThresholdEstimate{}, nil, err
	}

	n := len(samples)
	w := cfg.WindowSamples
	if w > n-minScanSamples {
		w = n - minScanSamples
	}
	minW := cfg.MinWindowSamples
	if minW < 3 {
		minW = 3
	}
	if w < minW {
		return ThresholdEstimate{}, nil, fmt.Errorf("%d samples, window %d: %w", n, w, ErrDataInsufficient)
	}

	elapsed := elapsedOf(samples)
	power := powerOf(samples)
	hr := heartrateOf(samples)
	eff := efficiencySignal(samples, power, hr, ftp, hrThreshold)

	ps := EWMA(power, elapsed, cfg.TauPower)
	hs := EWMA(hr, elapsed, cfg.TauHR)
	es := EWMA(eff, elapsed, cfg.TauEfficiency)

	smoothed := make([]float64, 0, n)
	for _, p := range ps {
		if v, ok := p.Float(); ok {
			smoothed = append(smoothed, v)
		}
	}
	if len(smoothed) == 0 {
		return ThresholdEstimate{}, nil, fmt.Errorf("no power readings: %w", ErrDataInsufficient)
	}
	bandLow := percentile(smoothed, cfg.BandLowPct)
	bandHigh := percentile(smoothed, cfg.BandHighPct)

	candidates := make([]ThresholdCandidate, 0, n-w+1)
	t := make([]float64, 0, w)
	p := make([]float64, 0, w)
	h := make([]float64, 0, w)
	e := make([]float64, 0, w)

	for s := 0; s+w <= n; s++ {
		if err := ctx.Err(); err != nil {
			return ThresholdEstimate{}, nil, err
		}

		t, p, h, e = t[:0], p[:0], h[:0], e[:0]
		for k := s; k < s+w; k++ {
			pv, ok1 := ps[k].Float()
			hv, ok2 := hs[k].Float()
			ev, ok3 := es[k].Float()
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			t = append(t, elapsed[k])
			p = append(p, pv)
			h = append(h, hv)
			e = append(e, ev)
		}
		if len(t) < 3 {
			continue
		}

		c := scoreWindow(t, p, h, e, cfg)
		c.StartS = elapsed[s]
		c.EndS = elapsed[s+w-1]
		c.StartIndex = s
		c.EndIndex = s + w
		c.InBand = c.MeanPower >= bandLow && c.MeanPower <= bandHigh
		if c.InBand {
			c.Flags = append(c.Flags, FlagInBand)
		}
		candidates = append(candidates, c)
	}

	if len(candidates) == 0 {
		return ThresholdEstimate{}, nil, fmt.Errorf("no window with power and HR: %w", ErrDataInsufficient)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	winner, inBand := selectCandidate(candidates, cfg.ScoreTolerance)
	est := ThresholdEstimate{
		ThresholdCandidate: winner,
		Confidence:         math.Min(1, math.Max(0, winner.Score/4)),
		BandLowW:           bandLow,
		BandHighW:          bandHigh,
		Fallback:           !inBand,
	}
	if est.Fallback {
		est.Flags = append(append([]string(nil), winner.Flags...), FlagFallback)
	}

	return est, candidates, nil
}

// selectCandidate picks the earliest in-band candidate within tol of the best
// in-band score. ranked must be sorted by score descending.
func selectCandidate(ranked []ThresholdCandidate, tol float64) (ThresholdCandidate, bool) {
	bestIdx := -1
	var bestScore float64
	for i, c := range ranked {
		if !c.InBand {
			continue
		}
		if bestIdx == -1 {
			bestIdx, bestScore = i, c.Score
			continue
		}
		if c.Score < bestScore-tol {
			break
		}
		if c.StartIndex < ranked[bestIdx].StartIndex {
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return ranked[0], false
	}
	return ranked[bestIdx], true
}

func scoreWindow(t, p, h, e []float64, cfg ThresholdConfig) ThresholdCandidate {
	c := ThresholdCandidate{
		MeanPower:      mean(p),
		MeanHR:         mean(h),
		MeanEfficiency: mean(e),
		Flags:          []string{},
	}

	ramp := slope(t, p).Scale(60)
	hrSlope := slope(t, h).Scale(60)
	c.PowerRampPerMin = ramp.Or(0)
	c.HRSlopePerMin = hrSlope.Or(0)
	c.EffSlopePerWatt = slope(p, e)
	c.Curvature = quadraticLeading(p, e)

	gate := func(flag string, passed bool, margin, threshold float64) {
		if !passed {
			return
		}
		c.Score += cfg.GateWeight + cfg.BonusWeight*marginBonus(margin, threshold)
		c.Flags = append(c.Flags, flag)
	}

	if v, ok := ramp.Float(); ok {
		gate(FlagRamp, v >= cfg.RampMin, v-cfg.RampMin, cfg.RampMin)
	}
	if v, ok := hrSlope.Float(); ok {
		gate(FlagHRFlat, math.Abs(v) <= cfg.HRFlatMax, cfg.HRFlatMax-math.Abs(v), cfg.HRFlatMax)
	}
	if v, ok := c.EffSlopePerWatt.Float(); ok {
		gate(FlagEffFlat, math.Abs(v) <= cfg.EffSlopeMax, cfg.EffSlopeMax-math.Abs(v), cfg.EffSlopeMax)
	}
	if v, ok := c.Curvature.Float(); ok {
		gate(FlagConcave, v <= -cfg.CurvatureThreshold, -v-cfg.CurvatureThreshold, cfg.CurvatureThreshold)
	}

	return c
}

// marginBonus is margin/|threshold| clamped to [0, 1]; a zero threshold
// earns the full bonus for any positive margin
func marginBonus(margin, threshold float64) float64 {
	if threshold == 0 {
		if margin > 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, math.Min(1, margin/math.Abs(threshold)))
}

// efficiencySignal picks the per-sample efficiency: the corrected column if
// any sample supplies one, else (p/ftp)/(hr/hrThreshold), else p/hr
func efficiencySignal(samples []Sample, power, hr []Num, ftp, hrThreshold float64) []Num {
	out := make([]Num, len(samples))

	for _, s := range samples {
		if s.EfficiencyCorrected != nil {
			for i, s := range samples {
				out[i] = FromPtr(s.EfficiencyCorrected)
			}
			return out
		}
	}

	normalized := ftp > 0 && hrThreshold > 0
	for i := range samples {
		if normalized {
			out[i] = power[i].Scale(1 / ftp).Div(hr[i].Scale(1 / hrThreshold))
		} else {
			out[i] = power[i].Div(hr[i])
		}
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}
