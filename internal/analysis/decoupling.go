package analysis

import "fmt"

// minHalfSamples is the fewest samples a half-window needs for an efficiency
const minHalfSamples = 3

// DecouplingResult is the efficiency of a window and its drift between the
// two temporal halves. Positive drift means the second half produced more
// intensity per heartbeat than the first.
type DecouplingResult struct {
	Efficiency      Num     `json:"efficiency_window"`
	DriftPct        Num     `json:"drift_pct"`
	EfficiencyHalf1 Num     `json:"efficiency_half1"`
	EfficiencyHalf2 Num     `json:"efficiency_half2"`
	HRCoverage      float64 `json:"hr_coverage_window"`
}

// AnalyzeDecoupling computes window efficiency (dt-weighted mean intensity
// over dt-weighted mean HR) and the drift between the halves split at the
// window's temporal midpoint:
//
//	drift = (e2/e1 - 1) * 100
//
// HR coverage is re-checked against minCoverage and reported as
// FailHRInsufficient when it falls short.
func AnalyzeDecoupling(elapsed []float64, w Window, intensity, hr []Num, minCoverage float64) (DecouplingResult, error) {
	n := len(elapsed)
	if len(intensity) != n || len(hr) != n {
		return DecouplingResult{}, fmt.Errorf("decoupling: %d elapsed, %d intensity, %d hr: %w",
			n, len(intensity), len(hr), ErrInvalidSeries)
	}
	lo, hi := w.StartIndex, w.EndIndex
	if lo < 0 || hi > n || hi <= lo {
		return DecouplingResult{}, fmt.Errorf("decoupling: window [%d, %d) outside %d samples: %w",
			lo, hi, n, ErrInvalidSeries)
	}

	hrCov := coverage(hr, lo, hi)
	if hrCov < minCoverage {
		return DecouplingResult{}, FailHRInsufficient
	}

	dt := intervals(elapsed)
	result := DecouplingResult{
		Efficiency: efficiency(intensity, hr, dt, lo, hi),
		HRCoverage: hrCov,
	}

	mid := (w.StartS + w.EndS) / 2
	split := lo
	for split < hi && elapsed[split] < mid {
		split++
	}

	if split-lo >= minHalfSamples {
		result.EfficiencyHalf1 = efficiency(intensity, hr, dt, lo, split)
	}
	if hi-split >= minHalfSamples {
		result.EfficiencyHalf2 = efficiency(intensity, hr, dt, split, hi)
	}
	result.DriftPct = result.EfficiencyHalf2.Div(result.EfficiencyHalf1).Add(Some(-1)).Scale(100)

	return result, nil
}

func efficiency(intensity, hr []Num, dt []float64, lo, hi int) Num {
	return weightedMean(intensity, dt, lo, hi).Div(weightedMean(hr, dt, lo, hi))
}
