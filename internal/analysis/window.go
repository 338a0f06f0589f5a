package analysis

import (
	"context"
	"fmt"
	"math"
)

// FailureReason is a structured, expected failure of the scanner or the
// decoupling analyzer. It implements error so callers can use errors.Is.
type FailureReason string

const (
	FailTooFewPoints   FailureReason = "too_few_points"
	FailNoHRGlobal     FailureReason = "no_hr_global"
	FailNoWindowFound  FailureReason = "no_window_found"
	FailHRInsufficient FailureReason = "hr_insufficient_in_window"
)

func (r FailureReason) Error() string { return string(r) }

// minScanSamples is the smallest series the scanner will look at
const minScanSamples = 5

// ScanOptions are the coverage and stability gates of the scanner
type ScanOptions struct {
	MinHRCoverageGlobal float64 `json:"min_hr_coverage_global"`
	MinHRCoverageWindow float64 `json:"min_hr_coverage_window"`
	MaxCV               float64 `json:"max_cv"`
}

// DefaultScanOptions returns the stock gates
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		MinHRCoverageGlobal: 0.80,
		MinHRCoverageWindow: 0.90,
		MaxCV:               0.15,
	}
}

// Window is a fixed-duration segment chosen by the scanner. It covers
// samples [StartIndex, EndIndex) and always spans exactly the requested
// duration: EndS = StartS + duration.
type Window struct {
	StartS     float64 `json:"start_s"`
	EndS       float64 `json:"end_s"`
	StartIndex int     `json:"start_index"`
	EndIndex   int     `json:"end_index"`

	Score      float64 `json:"score"` // time-weighted mean intensity
	CV         Num     `json:"cv"`
	HRCoverage float64 `json:"hr_coverage"`
}

// DurationS returns the window length in seconds
func (w Window) DurationS() float64 {
	return w.EndS - w.StartS
}

// Len returns the number of samples in the window
func (w Window) Len() int {
	return w.EndIndex - w.StartIndex
}

// ScanWindow finds the highest-scoring window of durationS seconds.
//
// For each start index i the window ends at the first j with
// elapsed[j]-elapsed[i] >= durationS; scanning stops once no such j
// exists. The window covers [i, j), or [i, j] when sample j falls exactly
// on the window end, so a window as long as the recording holds every
// sample. The score is the dt-weighted mean of intensity over the window.
// In ModeDecouplingValid candidates are skipped when their HR coverage or
// coefficient of variation fails the gates in opts. Ties keep the earliest.
//
// Expected failures are returned as a FailureReason. ctx is checked once
// per start index.
func ScanWindow(ctx context.Context, elapsed []float64, intensity, hr []Num, durationS float64, mode WindowMode, opts ScanOptions) (Window, error) {
	n := len(elapsed)
	if len(intensity) != n || len(hr) != n {
		return Window{}, fmt.Errorf("scan window: %d elapsed, %d intensity, %d hr: %w",
			n, len(intensity), len(hr), ErrInvalidSeries)
	}
	if n < minScanSamples {
		return Window{}, FailTooFewPoints
	}
	if mode == ModeDecouplingValid && coverage(hr, 0, n) < opts.MinHRCoverageGlobal {
		return Window{}, FailNoHRGlobal
	}

	if !isFinite(durationS) || durationS <= 0 {
		return Window{}, fmt.Errorf("scan window: duration %v: %w", durationS, ErrInvalidSeries)
	}
	if elapsed[n-1]-elapsed[0] < durationS {
		return Window{}, FailTooFewPoints
	}

	dt := intervals(elapsed)

	var best Window
	found := false
	j := 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return Window{}, err
		}

		if j <= i {
			j = i + 1
		}
		for j < n && elapsed[j]-elapsed[i] < durationS {
			j++
		}
		if j >= n {
			break
		}
		end := j
		if elapsed[j]-elapsed[i] == durationS {
			end = j + 1
		}

		mean, variance, weight := weightedMoments(intensity, dt, i, end)
		if weight == 0 {
			continue
		}
		cv := Some(math.Sqrt(variance)).Div(Some(mean))
		hrCov := coverage(hr, i, end)

		if mode == ModeDecouplingValid {
			if hrCov < opts.MinHRCoverageWindow {
				continue
			}
			if v, ok := cv.Float(); !ok || v > opts.MaxCV {
				continue
			}
		}

		if !found || mean > best.Score {
			best = Window{
				StartS:     elapsed[i],
				EndS:       elapsed[i] + durationS,
				StartIndex: i,
				EndIndex:   end,
				Score:      mean,
				CV:         cv,
				HRCoverage: hrCov,
			}
			found = true
		}
	}

	if !found {
		return Window{}, FailNoWindowFound
	}
	return best, nil
}
