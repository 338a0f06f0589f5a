package analysis

import (
	"errors"
	"math"
	"testing"
)

func TestAnalyzeDecoupling(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		intensity func(int) float64
		hr        func(int) Num
		wantEff   float64
		wantDrift float64
		delta     float64
	}{
		{
			name:      "steady effort has no drift",
			n:         600,
			intensity: constant(200),
			hr:        steadyHR,
			wantEff:   200.0 / 150,
			wantDrift: 0,
			delta:     1e-9,
		},
		{
			name: "second half less power at the same HR",
			n:    600,
			intensity: func(i int) float64 {
				if i < 300 {
					return 200
				}
				return 180
			},
			hr:        steadyHR,
			wantEff:   190.0 / 150,
			wantDrift: -10,
			delta:     1e-9,
		},
		{
			name:      "HR drifts up at the same power",
			n:         600,
			intensity: constant(200),
			hr: func(i int) Num {
				if i < 300 {
					return Some(140)
				}
				return Some(154)
			},
			wantEff: 200.0 / 147,
			// (200/154) / (200/140) - 1
			wantDrift: (140.0/154.0 - 1) * 100,
			delta:     1e-9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elapsed, intensity, hr := series(tt.n, 1, tt.intensity, tt.hr)
			w := Window{StartS: 0, EndS: float64(tt.n), StartIndex: 0, EndIndex: tt.n}

			got, err := AnalyzeDecoupling(elapsed, w, intensity, hr, 0.9)
			if err != nil {
				t.Fatalf("AnalyzeDecoupling() error = %v", err)
			}
			if eff := got.Efficiency.Or(-1); math.Abs(eff-tt.wantEff) > tt.delta {
				t.Errorf("Efficiency = %v, want %v", eff, tt.wantEff)
			}
			if drift := got.DriftPct.Or(-999); math.Abs(drift-tt.wantDrift) > tt.delta {
				t.Errorf("DriftPct = %v, want %v", drift, tt.wantDrift)
			}
			if got.HRCoverage != 1 {
				t.Errorf("HRCoverage = %v, want 1", got.HRCoverage)
			}
		})
	}
}

func TestAnalyzeDecoupling_TemporalMidpoint(t *testing.T) {
	// dense 1 Hz first 100 s, sparse 10 s second 100 s
	var elapsed []float64
	var intensity, hr []Num
	for i := 0; i < 100; i++ {
		elapsed = append(elapsed, float64(i))
		intensity = append(intensity, Some(200))
		hr = append(hr, Some(150))
	}
	for i := 0; i < 10; i++ {
		elapsed = append(elapsed, float64(100+i*10))
		intensity = append(intensity, Some(150))
		hr = append(hr, Some(150))
	}
	w := Window{StartS: 0, EndS: 200, StartIndex: 0, EndIndex: len(elapsed)}

	got, err := AnalyzeDecoupling(elapsed, w, intensity, hr, 0.9)
	if err != nil {
		t.Fatalf("AnalyzeDecoupling() error = %v", err)
	}

	// split at 100 s, not at sample 55
	if e1 := got.EfficiencyHalf1.Or(-1); math.Abs(e1-200.0/150) > 1e-9 {
		t.Errorf("EfficiencyHalf1 = %v, want %v", e1, 200.0/150)
	}
	if e2 := got.EfficiencyHalf2.Or(-1); math.Abs(e2-1) > 1e-9 {
		t.Errorf("EfficiencyHalf2 = %v, want 1", e2)
	}
}

func TestAnalyzeDecoupling_ShortHalves(t *testing.T) {
	elapsed, intensity, hr := series(10, 1, constant(200), steadyHR)

	tests := []struct {
		name       string
		window     Window
		half1Valid bool
		half2Valid bool
	}{
		{
			name:       "two samples before the midpoint",
			window:     Window{StartS: 0, EndS: 4, StartIndex: 0, EndIndex: 4},
			half1Valid: false,
			half2Valid: false,
		},
		{
			name:       "three samples in each half",
			window:     Window{StartS: 0, EndS: 6, StartIndex: 0, EndIndex: 6},
			half1Valid: true,
			half2Valid: true,
		},
		{
			name:       "short second half",
			window:     Window{StartS: 0, EndS: 8, StartIndex: 0, EndIndex: 6},
			half1Valid: true,
			half2Valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AnalyzeDecoupling(elapsed, tt.window, intensity, hr, 0.9)
			if err != nil {
				t.Fatalf("AnalyzeDecoupling() error = %v", err)
			}
			if got.EfficiencyHalf1.Valid() != tt.half1Valid {
				t.Errorf("EfficiencyHalf1 valid = %v, want %v", got.EfficiencyHalf1.Valid(), tt.half1Valid)
			}
			if got.EfficiencyHalf2.Valid() != tt.half2Valid {
				t.Errorf("EfficiencyHalf2 valid = %v, want %v", got.EfficiencyHalf2.Valid(), tt.half2Valid)
			}
			wantDrift := tt.half1Valid && tt.half2Valid
			if got.DriftPct.Valid() != wantDrift {
				t.Errorf("DriftPct valid = %v, want %v", got.DriftPct.Valid(), wantDrift)
			}
			if !got.Efficiency.Valid() {
				t.Error("window efficiency should stay defined")
			}
		})
	}
}

func TestAnalyzeDecoupling_ZeroBaseline(t *testing.T) {
	elapsed, intensity, hr := series(20, 1, func(i int) float64 {
		if i < 10 {
			return 0
		}
		return 200
	}, steadyHR)
	w := Window{StartS: 0, EndS: 20, StartIndex: 0, EndIndex: 20}

	got, err := AnalyzeDecoupling(elapsed, w, intensity, hr, 0.9)
	if err != nil {
		t.Fatalf("AnalyzeDecoupling() error = %v", err)
	}
	if got.DriftPct.Valid() {
		t.Errorf("DriftPct = %v, want undefined with a zero first half", got.DriftPct)
	}
}

func TestAnalyzeDecoupling_HRCoverage(t *testing.T) {
	elapsed, intensity, hr := series(100, 1, constant(200), func(i int) Num {
		if i%5 == 0 {
			return Undefined
		}
		return Some(150)
	})
	w := Window{StartS: 0, EndS: 100, StartIndex: 0, EndIndex: 100}

	_, err := AnalyzeDecoupling(elapsed, w, intensity, hr, 0.9)
	if !errors.Is(err, FailHRInsufficient) {
		t.Errorf("AnalyzeDecoupling() error = %v, want %v", err, FailHRInsufficient)
	}

	got, err := AnalyzeDecoupling(elapsed, w, intensity, hr, 0.8)
	if err != nil {
		t.Fatalf("AnalyzeDecoupling() at 0.8 coverage error = %v", err)
	}
	if math.Abs(got.HRCoverage-0.8) > 1e-12 {
		t.Errorf("HRCoverage = %v, want 0.8", got.HRCoverage)
	}
}

func TestAnalyzeDecoupling_BadWindow(t *testing.T) {
	elapsed, intensity, hr := series(10, 1, constant(200), steadyHR)

	for _, w := range []Window{
		{StartIndex: -1, EndIndex: 5},
		{StartIndex: 5, EndIndex: 11},
		{StartIndex: 5, EndIndex: 5},
	} {
		if _, err := AnalyzeDecoupling(elapsed, w, intensity, hr, 0.9); !errors.Is(err, ErrInvalidSeries) {
			t.Errorf("window [%d, %d): error = %v, want ErrInvalidSeries", w.StartIndex, w.EndIndex, err)
		}
	}
}
