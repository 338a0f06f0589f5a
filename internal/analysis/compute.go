package analysis

import (
	"context"
	"errors"
	"math"
)

// ActivityAnalysis is everything computed for one activity. Component
// failures are recorded here rather than aborting the analysis.
type ActivityAnalysis struct {
	Params Params
	Sport  Sport // resolved, never SportAuto

	Metrics    *MetricSeries
	HRCoverage float64 // fraction of samples with valid HR

	Window            *Window
	WindowFailure     error
	Decoupling        *DecouplingResult
	DecouplingFailure error

	Threshold           *ThresholdEstimate
	ThresholdCandidates []ThresholdCandidate
	ThresholdErr        error
}

// Analyze runs the metric calculator, the window scanner, the decoupling
// analyzer and the threshold estimator over one activity. Only a malformed
// series or a cancelled context is returned as an error.
func Analyze(ctx context.Context, samples []Sample, params Params, cfg Config) (*ActivityAnalysis, error) {
	metrics, err := CalculateMetrics(samples, params, cfg.Metrics)
	if err != nil {
		return nil, err
	}

	elapsed := elapsedOf(samples)
	hr := heartrateOf(samples)

	result := &ActivityAnalysis{
		Params:     params,
		Sport:      ResolveSport(samples, params.Sport),
		Metrics:    metrics,
		HRCoverage: coverage(hr, 0, len(hr)),
	}

	intensity := IntensitySignal(samples, result.Sport)
	window, err := ScanWindow(ctx, elapsed, intensity, hr, params.WindowSeconds(), params.Mode, cfg.Scan)
	switch {
	case err == nil:
		result.Window = &window
	case isCancel(err):
		return nil, err
	default:
		result.WindowFailure = err
	}

	if result.Window != nil {
		dec, err := AnalyzeDecoupling(elapsed, *result.Window, intensity, hr, cfg.Scan.MinHRCoverageWindow)
		if err != nil {
			result.DecouplingFailure = err
		} else {
			result.Decoupling = &dec
		}
	}

	est, candidates, err := EstimateThreshold(ctx, samples, params.FTP, params.ThresholdHR, cfg.Threshold)
	switch {
	case err == nil:
		result.Threshold = &est
		result.ThresholdCandidates = candidates
	case isCancel(err):
		return nil, err
	default:
		result.ThresholdErr = err
	}

	return result, nil
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ResolveSport turns SportAuto into bike or run. An activity is a ride when
// at least half of its samples carry positive power, otherwise a run when
// any speed is recorded.
func ResolveSport(samples []Sample, sport Sport) Sport {
	if sport == SportBike || sport == SportRun {
		return sport
	}
	if len(samples) == 0 {
		return SportBike
	}

	var withPower, withSpeed int
	for _, s := range samples {
		if s.PowerW != nil && *s.PowerW > 0 {
			withPower++
		}
		if s.SpeedKmh != nil && isFinite(*s.SpeedKmh) {
			withSpeed++
		}
	}
	switch {
	case float64(withPower) >= 0.5*float64(len(samples)):
		return SportBike
	case withSpeed > 0:
		return SportRun
	default:
		return SportBike
	}
}

// IntensitySignal returns the signal the scanner maximizes: power in watts
// for rides, speed in km/h for runs
func IntensitySignal(samples []Sample, sport Sport) []Num {
	if sport == SportRun {
		return speedOf(samples)
	}
	return powerOf(samples)
}

// CoverageDescription labels the fraction of samples with valid HR. The
// steps line up with the default scanner gates.
func CoverageDescription(coverage float64) string {
	switch {
	case coverage >= 0.90:
		return "usable for decoupling"
	case coverage >= 0.80:
		return "gappy"
	case coverage > 0:
		return "too sparse for decoupling"
	default:
		return "no heart rate"
	}
}

// DecouplingAssessment returns a human-readable assessment of efficiency drift
func DecouplingAssessment(driftPct float64) string {
	d := math.Abs(driftPct)
	switch {
	case d < 3:
		return "Excellent aerobic base"
	case d < 5:
		return "Good aerobic fitness"
	case d < 8:
		return "Developing aerobic base"
	case d < 12:
		return "Noticeable fatigue"
	default:
		return "Unstable effort"
	}
}

// ConfidenceLabel describes a threshold confidence in [0, 1]
func ConfidenceLabel(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "High"
	case confidence >= 0.5:
		return "Medium"
	default:
		return "Low"
	}
}
