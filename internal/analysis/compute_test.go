package analysis

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestResolveSport(t *testing.T) {
	ride := steadyRide(10, 200, 150)
	run := func() []Sample {
		samples := make([]Sample, 10)
		for i := range samples {
			samples[i] = Sample{ElapsedS: float64(i), SpeedKmh: floatPtr(12), Heartrate: intPtr(150)}
		}
		return samples
	}()
	coasting := steadyRide(10, 0, 150)
	for i := 0; i < 5; i++ {
		coasting[i].PowerW = floatPtr(180)
	}

	tests := []struct {
		name    string
		samples []Sample
		sport   Sport
		want    Sport
	}{
		{"explicit bike", run, SportBike, SportBike},
		{"explicit run", ride, SportRun, SportRun},
		{"auto with power", ride, SportAuto, SportBike},
		{"auto with speed only", run, SportAuto, SportRun},
		{"auto half the samples powered", coasting, SportAuto, SportBike},
		{"auto with nothing", []Sample{{ElapsedS: 0}, {ElapsedS: 1}}, SportAuto, SportBike},
		{"empty", nil, SportAuto, SportBike},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveSport(tt.samples, tt.sport); got != tt.want {
				t.Errorf("ResolveSport() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntensitySignal(t *testing.T) {
	samples := []Sample{{ElapsedS: 0, PowerW: floatPtr(210), SpeedKmh: floatPtr(31)}}

	if got := IntensitySignal(samples, SportBike)[0].Or(0); got != 210 {
		t.Errorf("bike intensity = %v, want 210", got)
	}
	if got := IntensitySignal(samples, SportRun)[0].Or(0); got != 31 {
		t.Errorf("run intensity = %v, want 31", got)
	}
}

func TestAnalyze_SteadyRide(t *testing.T) {
	samples := steadyRide(3600, 200, 150)
	params := defaultParams()
	params.Mode = ModeDecouplingValid

	result, err := Analyze(context.Background(), samples, params, DefaultConfig())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.Sport != SportBike {
		t.Errorf("Sport = %v, want bike", result.Sport)
	}
	if got := result.Metrics.Totals.TSS.Or(0); math.Abs(got-64) > 1e-9 {
		t.Errorf("TSS = %v, want 64", got)
	}
	if result.HRCoverage != 1 {
		t.Errorf("HRCoverage = %v, want 1", result.HRCoverage)
	}
	if result.WindowFailure != nil {
		t.Fatalf("WindowFailure = %v", result.WindowFailure)
	}
	if result.Window.DurationS() != 1200 {
		t.Errorf("window spans %v s, want 1200", result.Window.DurationS())
	}
	if result.Decoupling == nil {
		t.Fatalf("DecouplingFailure = %v", result.DecouplingFailure)
	}
	if got := result.Decoupling.DriftPct.Or(-1); got != 0 {
		t.Errorf("DriftPct = %v, want 0", got)
	}
	if result.ThresholdErr != nil || result.Threshold == nil {
		t.Errorf("ThresholdErr = %v, want an estimate", result.ThresholdErr)
	}
}

func TestAnalyze_FailuresAreRecorded(t *testing.T) {
	// 10 minutes, no HR, 20 minute window
	samples := steadyRide(600, 200, 0)
	for i := range samples {
		samples[i].Heartrate = nil
	}

	params := defaultParams()
	params.Mode = ModeDecouplingValid

	result, err := Analyze(context.Background(), samples, params, DefaultConfig())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if !errors.Is(result.WindowFailure, FailNoHRGlobal) {
		t.Errorf("WindowFailure = %v, want %v", result.WindowFailure, FailNoHRGlobal)
	}
	if result.Window != nil || result.Decoupling != nil {
		t.Error("no window should mean no decoupling")
	}
	if got := result.Metrics.Totals.FSS.Or(-1); got != 0 {
		t.Errorf("FSS = %v, want 0 without HR", got)
	}
	if !errors.Is(result.ThresholdErr, ErrDataInsufficient) {
		t.Errorf("ThresholdErr = %v, want ErrDataInsufficient", result.ThresholdErr)
	}

	params.Mode = ModeBest
	result, err = Analyze(context.Background(), samples, params, DefaultConfig())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !errors.Is(result.WindowFailure, FailTooFewPoints) {
		t.Errorf("WindowFailure = %v, want %v", result.WindowFailure, FailTooFewPoints)
	}
}

func TestAnalyze_BestWindowWithoutHR(t *testing.T) {
	samples := steadyRide(1800, 200, 0)
	for i := range samples {
		samples[i].Heartrate = nil
	}
	params := defaultParams()
	params.WindowMinutes = 10

	result, err := Analyze(context.Background(), samples, params, DefaultConfig())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Window == nil {
		t.Fatalf("WindowFailure = %v", result.WindowFailure)
	}
	if !errors.Is(result.DecouplingFailure, FailHRInsufficient) {
		t.Errorf("DecouplingFailure = %v, want %v", result.DecouplingFailure, FailHRInsufficient)
	}
}

func TestAnalyze_InvalidSeries(t *testing.T) {
	samples := steadyRide(100, 200, 150)
	samples[3].ElapsedS = math.NaN()

	_, err := Analyze(context.Background(), samples, defaultParams(), DefaultConfig())
	if !errors.Is(err, ErrInvalidSeries) {
		t.Errorf("Analyze() error = %v, want ErrInvalidSeries", err)
	}
}

func TestAnalyze_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Analyze(ctx, steadyRide(3600, 200, 150), defaultParams(), DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Analyze() error = %v, want context.Canceled", err)
	}
}

func TestDecouplingAssessment(t *testing.T) {
	tests := []struct {
		drift float64
		want  string
	}{
		{1, "Excellent aerobic base"},
		{-4, "Good aerobic fitness"},
		{6, "Developing aerobic base"},
		{-10, "Noticeable fatigue"},
		{20, "Unstable effort"},
	}
	for _, tt := range tests {
		if got := DecouplingAssessment(tt.drift); got != tt.want {
			t.Errorf("DecouplingAssessment(%v) = %q, want %q", tt.drift, got, tt.want)
		}
	}
}

func TestCoverageDescription(t *testing.T) {
	tests := []struct {
		coverage float64
		want     string
	}{
		{1, "usable for decoupling"},
		{0.9, "usable for decoupling"},
		{0.85, "gappy"},
		{0.3, "too sparse for decoupling"},
		{0, "no heart rate"},
	}
	for _, tt := range tests {
		if got := CoverageDescription(tt.coverage); got != tt.want {
			t.Errorf("CoverageDescription(%v) = %q, want %q", tt.coverage, got, tt.want)
		}
	}
}
