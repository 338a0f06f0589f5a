package importer

import (
	"fmt"
	"io"
	"math"

	"github.com/tormoder/fit"

	"trainload/internal/analysis"
)

func decodeFIT(r io.Reader) ([]point, Meta, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("decode FIT file: %w", err)
	}

	activity, err := decoded.Activity()
	if err != nil {
		return nil, Meta{}, fmt.Errorf("activity FIT expected: %w", err)
	}

	var meta Meta
	meta.SportHint = analysis.SportAuto
	if len(activity.Sessions) > 0 && activity.Sessions[0] != nil {
		meta.SportHint = fitSport(activity.Sessions[0].Sport)
	}

	points := make([]point, 0, len(activity.Records))
	for _, rec := range activity.Records {
		if rec == nil || rec.Timestamp.IsZero() || fit.IsBaseTime(rec.Timestamp) {
			continue
		}
		p := point{ts: rec.Timestamp}
		if w, ok := extractPower(rec); ok {
			p.power = &w
		}
		if hr, ok := extractHeartRate(rec); ok {
			p.heartrate = &hr
		}
		if mps, ok := extractSpeed(rec); ok {
			kmh := mps * 3.6
			p.speedKmh = &kmh
		}
		points = append(points, p)
	}
	return points, meta, nil
}

func fitSport(s fit.Sport) analysis.Sport {
	switch s {
	case fit.SportCycling:
		return analysis.SportBike
	case fit.SportRunning:
		return analysis.SportRun
	}
	return analysis.SportAuto
}

func extractPower(rec *fit.RecordMsg) (float64, bool) {
	if rec.Power == math.MaxUint16 {
		return 0, false
	}
	return float64(rec.Power), true
}

func extractHeartRate(rec *fit.RecordMsg) (int, bool) {
	if rec.HeartRate == math.MaxUint8 || rec.HeartRate == 0 {
		return 0, false
	}
	return int(rec.HeartRate), true
}

// extractSpeed returns m/s, preferring the enhanced field
func extractSpeed(rec *fit.RecordMsg) (float64, bool) {
	speed := rec.GetEnhancedSpeedScaled()
	if isFinite(speed) && speed >= 0 {
		return speed, true
	}
	speed = rec.GetSpeedScaled()
	if isFinite(speed) && speed >= 0 {
		return speed, true
	}
	return 0, false
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
