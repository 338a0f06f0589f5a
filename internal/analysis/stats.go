package analysis

import (
	"math"
	"sort"
)

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// intervals returns the per-sample time step. The first step borrows the
// first positive delta of the series (1.0 if there is none); every step is
// clamped at zero so out-of-order timestamps contribute no weight.
func intervals(elapsed []float64) []float64 {
	n := len(elapsed)
	dt := make([]float64, n)
	if n == 0 {
		return dt
	}

	first := 1.0
	for i := 1; i < n; i++ {
		if d := elapsed[i] - elapsed[i-1]; d > 0 {
			first = d
			break
		}
	}

	dt[0] = first
	for i := 1; i < n; i++ {
		d := elapsed[i] - elapsed[i-1]
		if d < 0 {
			d = 0
		}
		dt[i] = d
	}
	return dt
}

// secondsToSamples converts a duration into a sample count at the given step
func secondsToSamples(seconds, step float64) int {
	if step <= 0 {
		return 1
	}
	n := int(math.Round(seconds / step))
	if n < 1 {
		return 1
	}
	return n
}

// weightedMoments returns the dt-weighted mean and population variance of
// the defined values in x[lo:hi], and the total weight used
func weightedMoments(x []Num, dt []float64, lo, hi int) (mean, variance, weight float64) {
	var sw, swx float64
	for k := lo; k < hi; k++ {
		v, ok := x[k].Float()
		if !ok || dt[k] <= 0 {
			continue
		}
		sw += dt[k]
		swx += dt[k] * v
	}
	if sw == 0 {
		return math.NaN(), math.NaN(), 0
	}
	mean = swx / sw

	var ss float64
	for k := lo; k < hi; k++ {
		v, ok := x[k].Float()
		if !ok || dt[k] <= 0 {
			continue
		}
		d := v - mean
		ss += dt[k] * d * d
	}
	return mean, ss / sw, sw
}

// weightedMean returns the dt-weighted mean of the defined values in x[lo:hi]
func weightedMean(x []Num, dt []float64, lo, hi int) Num {
	mean, _, w := weightedMoments(x, dt, lo, hi)
	if w == 0 {
		return Undefined
	}
	return Some(mean)
}

// coverage returns the fraction of x[lo:hi] that is defined
func coverage(x []Num, lo, hi int) float64 {
	if hi <= lo {
		return 0
	}
	valid := 0
	for k := lo; k < hi; k++ {
		if x[k].Valid() {
			valid++
		}
	}
	return float64(valid) / float64(hi-lo)
}

// slope is the least-squares slope of y on x computed on mean-removed
// vectors: cov(x, y) / var(x). Undefined when x has no spread.
func slope(x, y []float64) Num {
	n := len(x)
	if n < 2 || n != len(y) {
		return Undefined
	}
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var sxy, sxx float64
	for i := range x {
		dx := x[i] - mx
		sxy += dx * (y[i] - my)
		sxx += dx * dx
	}
	if sxx == 0 {
		return Undefined
	}
	return Some(sxy / sxx)
}

// quadraticLeading fits y = a·x² + b·x + c by least squares and returns a.
// x is centered and scaled before solving the normal equations; a is
// rescaled back, so the result is in units of y per x².
func quadraticLeading(x, y []float64) Num {
	n := len(x)
	if n < 3 || n != len(y) {
		return Undefined
	}
	var mx float64
	for _, v := range x {
		mx += v
	}
	mx /= float64(n)

	var scale float64
	for _, v := range x {
		scale = math.Max(scale, math.Abs(v-mx))
	}
	if scale == 0 {
		return Undefined
	}

	var s1, s2, s3, s4, t0, t1, t2 float64
	for i := range x {
		u := (x[i] - mx) / scale
		u2 := u * u
		s1 += u
		s2 += u2
		s3 += u2 * u
		s4 += u2 * u2
		t0 += y[i]
		t1 += u * y[i]
		t2 += u2 * y[i]
	}
	s0 := float64(n)

	// Normal equations, unknowns (c, b, a):
	// | s0 s1 s2 | |c|   |t0|
	// | s1 s2 s3 | |b| = |t1|
	// | s2 s3 s4 | |a|   |t2|
	det := det3(s0, s1, s2, s1, s2, s3, s2, s3, s4)
	if det == 0 || !isFinite(det) || math.Abs(det) < 1e-12*s0*s0*s0 {
		return Undefined
	}
	detA := det3(s0, s1, t0, s1, s2, t1, s2, s3, t2)
	return Some(detA / det / (scale * scale))
}

func det3(a, b, c, d, e, f, g, h, i float64) float64 {
	return a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
}

// percentile returns the p-th percentile (0..100) of the finite values in
// xs using linear interpolation between closest ranks
func percentile(xs []float64, p float64) float64 {
	vals := make([]float64, 0, len(xs))
	for _, v := range xs {
		if isFinite(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	if p <= 0 {
		return vals[0]
	}
	if p >= 100 {
		return vals[len(vals)-1]
	}
	rank := p / 100 * float64(len(vals)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return vals[lo] + (vals[hi]-vals[lo])*frac
}

// EWMA applies a causal exponentially weighted moving average with time
// constant tau (seconds): s_t = α·x_t + (1-α)·s_{t-1}, α = dt/(tau+dt).
// The state is seeded at the first defined input; positions before it are
// undefined, and undefined inputs afterwards hold the previous state.
// tau <= 0 returns the input unchanged.
func EWMA(x []Num, elapsed []float64, tau float64) []Num {
	out := make([]Num, len(x))
	if tau <= 0 {
		copy(out, x)
		return out
	}

	dt := intervals(elapsed)
	var state float64
	seeded := false
	for i, xi := range x {
		v, ok := xi.Float()
		switch {
		case ok && !seeded:
			state = v
			seeded = true
		case ok:
			alpha := dt[i] / (tau + dt[i])
			state = alpha*v + (1-alpha)*state
		}
		if seeded {
			out[i] = Some(state)
		}
	}
	return out
}

// interpolateGaps fills undefined values by linear interpolation between
// defined neighbours and extends the first/last defined value to the edges.
// An all-undefined input is returned unchanged.
func interpolateGaps(x []Num) []Num {
	out := make([]Num, len(x))
	copy(out, x)

	prev := -1
	for i := range out {
		if !out[i].Valid() {
			continue
		}
		if prev == -1 {
			for k := 0; k < i; k++ {
				out[k] = out[i]
			}
		} else if i-prev > 1 {
			a, _ := out[prev].Float()
			b, _ := out[i].Float()
			span := float64(i - prev)
			for k := prev + 1; k < i; k++ {
				out[k] = Some(a + (b-a)*float64(k-prev)/span)
			}
		}
		prev = i
	}
	if prev != -1 {
		for k := prev + 1; k < len(out); k++ {
			out[k] = out[prev]
		}
	}
	return out
}

// rollingMean is a trailing mean over the last n samples, using whatever
// defined values fall in the window (min_periods = 1)
func rollingMean(x []Num, n int) []Num {
	out := make([]Num, len(x))
	if n < 1 {
		n = 1
	}
	var sum float64
	var count int
	for i := range x {
		if v, ok := x[i].Float(); ok {
			sum += v
			count++
		}
		if i >= n {
			if v, ok := x[i-n].Float(); ok {
				sum -= v
				count--
			}
		}
		if count > 0 {
			out[i] = Some(sum / float64(count))
		}
	}
	return out
}

// meanDefined is the plain mean of the defined values
func meanDefined(x []Num) Num {
	var sum float64
	var count int
	for _, n := range x {
		if v, ok := n.Float(); ok {
			sum += v
			count++
		}
	}
	if count == 0 {
		return Undefined
	}
	return Some(sum / float64(count))
}
