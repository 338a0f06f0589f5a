package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSeries is returned when the sample sequence itself is malformed
// (non-finite or negative elapsed time). Numeric degeneracies never produce it.
var ErrInvalidSeries = errors.New("invalid sample series")

// Sample is one device reading. Nil fields are missing readings.
type Sample struct {
	ElapsedS  float64  // seconds since start, non-decreasing
	PowerW    *float64 // watts
	Heartrate *int     // bpm
	SpeedKmh  *float64 // km/h

	// EfficiencyCorrected is an optional externally corrected efficiency
	// value; when any sample carries one the threshold estimator uses it.
	EfficiencyCorrected *float64
}

// WindowMode selects the window scanner policy
type WindowMode string

const (
	ModeBest            WindowMode = "best"
	ModeDecouplingValid WindowMode = "decoupling_valid"
)

// ParseWindowMode parses a mode name
func ParseWindowMode(s string) (WindowMode, error) {
	switch m := WindowMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeBest, ModeDecouplingValid:
		return m, nil
	case "":
		return ModeBest, nil
	}
	return "", fmt.Errorf("unknown window mode %q (expected best|decoupling_valid)", s)
}

// Sport selects which signal drives the window scanner
type Sport string

const (
	SportAuto Sport = "auto"
	SportBike Sport = "bike"
	SportRun  Sport = "run"
)

// ParseSport parses a sport name
func ParseSport(s string) (Sport, error) {
	switch sp := Sport(strings.ToLower(strings.TrimSpace(s))); sp {
	case SportAuto, SportBike, SportRun:
		return sp, nil
	case "":
		return SportAuto, nil
	}
	return "", fmt.Errorf("unknown sport %q (expected auto|bike|run)", s)
}

// Params are the per-run athlete and analysis parameters.
// FTP and ThresholdHR positivity is advisory: non-positive values
// degrade dependent fields to undefined instead of failing.
type Params struct {
	FTP           float64 // watts
	ThresholdHR   float64 // bpm
	WindowMinutes float64 // [5, 180]
	Mode          WindowMode
	Sport         Sport
}

// WindowSeconds returns the scanner duration in seconds
func (p Params) WindowSeconds() float64 {
	return p.WindowMinutes * 60
}

// Config holds the tunable knobs of every component. It is passed
// explicitly into each call; nothing in this package reads globals.
type Config struct {
	Metrics   MetricsConfig
	Scan      ScanOptions
	Threshold ThresholdConfig
}

// DefaultConfig returns the stock tuning
func DefaultConfig() Config {
	return Config{
		Metrics:   DefaultMetricsConfig(),
		Scan:      DefaultScanOptions(),
		Threshold: DefaultThresholdConfig(),
	}
}

// validateSeries checks the structural shape of the input
func validateSeries(samples []Sample) error {
	for i, s := range samples {
		if !isFinite(s.ElapsedS) || s.ElapsedS < 0 {
			return fmt.Errorf("sample %d: elapsed %v: %w", i, s.ElapsedS, ErrInvalidSeries)
		}
	}
	return nil
}

func elapsedOf(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.ElapsedS
	}
	return out
}

// powerOf returns power with missing readings as Undefined
func powerOf(samples []Sample) []Num {
	out := make([]Num, len(samples))
	for i, s := range samples {
		out[i] = FromPtr(s.PowerW)
	}
	return out
}

// heartrateOf returns HR with missing and non-positive readings as Undefined
func heartrateOf(samples []Sample) []Num {
	out := make([]Num, len(samples))
	for i, s := range samples {
		if validHeartrate(s.Heartrate) {
			out[i] = Some(float64(*s.Heartrate))
		}
	}
	return out
}

func speedOf(samples []Sample) []Num {
	out := make([]Num, len(samples))
	for i, s := range samples {
		out[i] = FromPtr(s.SpeedKmh)
	}
	return out
}

func validHeartrate(hr *int) bool {
	return hr != nil && *hr > 0
}
