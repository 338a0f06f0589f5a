package analysis

import (
	"encoding/json"
	"math"
	"testing"
)

func nums(vs ...float64) []Num {
	out := make([]Num, len(vs))
	for i, v := range vs {
		out[i] = Some(v)
	}
	return out
}

func TestIntervals(t *testing.T) {
	tests := []struct {
		name    string
		elapsed []float64
		want    []float64
	}{
		{"empty", nil, []float64{}},
		{"single sample", []float64{5}, []float64{1}},
		{"regular", []float64{0, 2, 4}, []float64{2, 2, 2}},
		{"leading duplicate", []float64{0, 0, 5, 6}, []float64{5, 0, 5, 1}},
		{"out of order", []float64{0, 1, 0.5, 2}, []float64{1, 1, 0, 1.5}},
		{"all equal", []float64{3, 3, 3}, []float64{1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := intervals(tt.elapsed)
			if len(got) != len(tt.want) {
				t.Fatalf("intervals() len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("intervals()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEWMA(t *testing.T) {
	elapsed := []float64{0, 1, 2, 3, 4, 5}

	t.Run("zero tau is the identity", func(t *testing.T) {
		x := []Num{Some(3), Undefined, Some(7), Some(-2), Some(9), Undefined}
		for _, tau := range []float64{0, -1} {
			got := EWMA(x, elapsed, tau)
			for i := range x {
				if got[i] != x[i] {
					t.Errorf("tau %v: EWMA()[%d] = %v, want %v", tau, i, got[i], x[i])
				}
			}
		}
	})

	t.Run("tiny tau approaches the input", func(t *testing.T) {
		x := nums(3, 8, 1, 6, 2, 9)
		got := EWMA(x, elapsed, 1e-9)
		for i := range x {
			if math.Abs(got[i].Or(0)-x[i].Or(0)) > 1e-6 {
				t.Errorf("EWMA()[%d] = %v, want ~%v", i, got[i], x[i])
			}
		}
	})

	t.Run("seeded at first finite value and holds through gaps", func(t *testing.T) {
		x := []Num{Undefined, Some(10), Some(20), Undefined, Some(20), Some(20)}
		got := EWMA(x, elapsed, 1)

		if got[0].Valid() {
			t.Errorf("EWMA()[0] = %v, want undefined before the first value", got[0])
		}
		if got[1].Or(0) != 10 {
			t.Errorf("EWMA()[1] = %v, want 10", got[1])
		}
		// alpha = 1/(1+1) = 0.5
		if got[2].Or(0) != 15 {
			t.Errorf("EWMA()[2] = %v, want 15", got[2])
		}
		if got[3].Or(0) != 15 {
			t.Errorf("EWMA()[3] = %v, want 15 held", got[3])
		}
		if got[4].Or(0) != 17.5 {
			t.Errorf("EWMA()[4] = %v, want 17.5", got[4])
		}
	})

	t.Run("uses the elapsed step", func(t *testing.T) {
		x := nums(0, 10)
		got := EWMA(x, []float64{0, 3}, 1)
		// alpha = 3/(1+3)
		if math.Abs(got[1].Or(0)-7.5) > 1e-12 {
			t.Errorf("EWMA()[1] = %v, want 7.5", got[1])
		}
	})
}

func TestSlope(t *testing.T) {
	tests := []struct {
		name  string
		x, y  []float64
		want  float64
		valid bool
	}{
		{"line", []float64{0, 1, 2, 3}, []float64{1, 3, 5, 7}, 2, true},
		{"negative", []float64{0, 1, 2}, []float64{4, 2, 0}, -2, true},
		{"offset x", []float64{1000, 1001, 1002}, []float64{0, 0.5, 1}, 0.5, true},
		{"constant x", []float64{1, 1, 1}, []float64{1, 2, 3}, 0, false},
		{"single point", []float64{1}, []float64{1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := slope(tt.x, tt.y)
			if got.Valid() != tt.valid {
				t.Fatalf("slope() valid = %v, want %v", got.Valid(), tt.valid)
			}
			if tt.valid && math.Abs(got.Or(0)-tt.want) > 1e-12 {
				t.Errorf("slope() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuadraticLeading(t *testing.T) {
	x := make([]float64, 50)
	y := make([]float64, 50)
	for i := range x {
		x[i] = 150 + float64(i)*2
		y[i] = -0.003*x[i]*x[i] + 1.2*x[i] - 40
	}
	got := quadraticLeading(x, y)
	if math.Abs(got.Or(0)+0.003) > 1e-9 {
		t.Errorf("quadraticLeading() = %v, want -0.003", got)
	}

	for i := range y {
		y[i] = 0.5*x[i] + 1
	}
	if got := quadraticLeading(x, y); math.Abs(got.Or(1)) > 1e-12 {
		t.Errorf("quadraticLeading() on a line = %v, want 0", got)
	}

	if got := quadraticLeading([]float64{1, 2}, []float64{1, 4}); got.Valid() {
		t.Errorf("quadraticLeading() with two points = %v, want undefined", got)
	}
	if got := quadraticLeading([]float64{5, 5, 5}, []float64{1, 2, 3}); got.Valid() {
		t.Errorf("quadraticLeading() with constant x = %v, want undefined", got)
	}
}

func TestPercentile(t *testing.T) {
	xs := []float64{5, 1, 4, 2, 3, math.NaN()}

	tests := []struct {
		p, want float64
	}{
		{0, 1},
		{50, 3},
		{70, 3.8},
		{95, 4.8},
		{100, 5},
	}
	for _, tt := range tests {
		if got := percentile(xs, tt.p); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	if got := percentile(nil, 50); !math.IsNaN(got) {
		t.Errorf("percentile(nil) = %v, want NaN", got)
	}
}

func TestWeightedMoments(t *testing.T) {
	x := []Num{Some(100), Some(200), Undefined, Some(400)}
	dt := []float64{1, 3, 5, 0}

	mean, variance, weight := weightedMoments(x, dt, 0, len(x))
	if weight != 4 {
		t.Errorf("weight = %v, want 4", weight)
	}
	if mean != 175 {
		t.Errorf("mean = %v, want 175", mean)
	}
	// (1*75² + 3*25²) / 4
	if math.Abs(variance-1875) > 1e-9 {
		t.Errorf("variance = %v, want 1875", variance)
	}

	if got := weightedMean(x, dt, 2, 4); got.Valid() {
		t.Errorf("weightedMean() with no weight = %v, want undefined", got)
	}
}

func TestInterpolateGaps(t *testing.T) {
	x := []Num{Undefined, Some(2), Undefined, Undefined, Some(8), Undefined}
	want := []float64{2, 2, 4, 6, 8, 8}

	got := interpolateGaps(x)
	for i := range want {
		if got[i].Or(-1) != want[i] {
			t.Errorf("interpolateGaps()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if x[0].Valid() {
		t.Error("interpolateGaps() modified its input")
	}

	empty := interpolateGaps([]Num{Undefined, Undefined})
	if empty[0].Valid() || empty[1].Valid() {
		t.Error("all-undefined input should stay undefined")
	}
}

func TestRollingMean(t *testing.T) {
	x := []Num{Some(1), Some(2), Undefined, Some(6), Some(8)}
	want := []Num{Some(1), Some(1.5), Some(2), Some(6), Some(7)}

	got := rollingMean(x, 2)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rollingMean()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSecondsToSamples(t *testing.T) {
	tests := []struct {
		seconds, step float64
		want          int
	}{
		{30, 1, 30},
		{30, 2, 15},
		{5, 4, 1},
		{0, 1, 1},
		{30, 0, 1},
	}
	for _, tt := range tests {
		if got := secondsToSamples(tt.seconds, tt.step); got != tt.want {
			t.Errorf("secondsToSamples(%v, %v) = %d, want %d", tt.seconds, tt.step, got, tt.want)
		}
	}
}

func TestNum(t *testing.T) {
	if Some(math.NaN()).Valid() || Some(math.Inf(-1)).Valid() {
		t.Error("non-finite values should be undefined")
	}
	if Some(1).Div(Some(0)).Valid() {
		t.Error("division by zero should be undefined")
	}
	if Some(2).Add(Undefined).Valid() || Undefined.Mul(Some(3)).Valid() {
		t.Error("arithmetic with undefined should be undefined")
	}
	if got := Some(6).Div(Some(4)).Scale(2).Or(0); got != 3 {
		t.Errorf("6/4*2 = %v, want 3", got)
	}
	if !math.IsNaN(Undefined.NaN()) {
		t.Error("Undefined.NaN() should be NaN")
	}
	if Undefined.Ptr() != nil || *Some(4).Ptr() != 4 {
		t.Error("Ptr() mismatch")
	}
	if FromPtr(nil).Valid() {
		t.Error("FromPtr(nil) should be undefined")
	}

	data, err := json.Marshal(struct {
		A Num `json:"a"`
		B Num `json:"b"`
	}{Some(1.5), Undefined})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"a":1.5,"b":null}` {
		t.Errorf("json = %s", data)
	}

	var decoded struct {
		A Num `json:"a"`
		B Num `json:"b"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.A != Some(1.5) || decoded.B.Valid() {
		t.Errorf("decoded = %+v", decoded)
	}
}
