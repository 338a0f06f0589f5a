package analysis

import (
	"sort"
	"time"
)

// MetricsConfig controls the auxiliary series of the metric calculator.
// None of these affect TSS unless FillHRGaps is set, which changes FSS.
type MetricsConfig struct {
	RollingWindowSeconds float64 // moving average of load increments
	DisplaySmoothSeconds float64 // power/HR smoothing for display
	FillHRGaps           bool    // replace invalid HR with a rolling mean before FSS
	HRFillSeconds        float64
}

// DefaultMetricsConfig returns the stock metric windows
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		RollingWindowSeconds: 30,
		DisplaySmoothSeconds: 5,
		FillHRGaps:           false,
		HRFillSeconds:        30,
	}
}

// EnrichedSample is a Sample plus its derived per-sample metrics
type EnrichedSample struct {
	Sample
	DtS float64

	PctFTP          Num // power as % of FTP
	PctHR           Num // HR as % of threshold HR
	EfficiencyRatio Num // EFR = PctFTP / PctHR
	IntensityFactor Num // IF = power / FTP
	CompositeRatio  Num // ICR = IF / EFR

	TSSInc Num
	FSSInc Num
	TSS    Num // cumulative
	FSS    Num // cumulative

	TSSIncMA    Num
	FSSIncMA    Num
	PowerSmooth Num
	HRSmooth    Num
}

// LoadTotals are the integrated load scores of an activity
type LoadTotals struct {
	TSS Num `json:"tss"` // power based
	FSS Num `json:"fss"` // efficiency based
}

// MetricSummary holds activity-level averages for reporting and history
type MetricSummary struct {
	DurationH     float64 `json:"duration_h"`
	AvgPower      Num     `json:"avg_power_w"`
	AvgHeartrate  Num     `json:"avg_hr_bpm"`
	AvgEfficiency Num     `json:"avg_efficiency_ratio"`
	AvgComposite  Num     `json:"avg_composite_ratio"`
}

// MetricSeries is the calculator output: the per-sample series and the totals
type MetricSeries struct {
	Samples []EnrichedSample
	Totals  LoadTotals
	Summary MetricSummary
}

// CalculateMetrics derives the per-sample metrics and integrates TSS/FSS.
//
//	TSS += IF² · dt_h · 100
//	FSS += ICR² · dt_h · 100   (undefined ICR counts as 0)
//
// Non-positive FTP or threshold HR never fail: every dependent field is
// undefined instead. Without a usable FTP both totals are undefined; a
// missing threshold HR only leaves ICR undefined, so FSS integrates to 0.
// Only a malformed elapsed column returns an error.
func CalculateMetrics(samples []Sample, params Params, cfg MetricsConfig) (*MetricSeries, error) {
	if err := validateSeries(samples); err != nil {
		return nil, err
	}

	n := len(samples)
	series := &MetricSeries{Samples: make([]EnrichedSample, n)}
	if n == 0 {
		return series, nil
	}

	elapsed := elapsedOf(samples)
	dt := intervals(elapsed)
	step := dt[0]

	ftp := Undefined
	if params.FTP > 0 {
		ftp = Some(params.FTP)
	}
	hrThreshold := Undefined
	if params.ThresholdHR > 0 {
		hrThreshold = Some(params.ThresholdHR)
	}

	hr := heartrateOf(samples)
	hrEff := hr
	if cfg.FillHRGaps {
		hrEff = fillHeartrate(hr, secondsToSamples(cfg.HRFillSeconds, step))
	}

	var tssSum, fssSum float64
	var tssSeen, fssSeen bool
	tssInc := make([]Num, n)
	fssInc := make([]Num, n)

	for i, s := range samples {
		e := &series.Samples[i]
		e.Sample = s
		e.DtS = dt[i]

		// Missing power is coasting
		power := Some(0)
		if s.PowerW != nil {
			power = FromPtr(s.PowerW)
		}

		e.PctFTP = power.Div(ftp).Scale(100)
		e.PctHR = hrEff[i].Div(hrThreshold).Scale(100)
		e.EfficiencyRatio = e.PctFTP.Div(e.PctHR)
		e.IntensityFactor = power.Div(ftp)
		e.CompositeRatio = e.IntensityFactor.Div(e.EfficiencyRatio)

		dtH := Some(dt[i] / 3600)
		e.TSSInc = e.IntensityFactor.Mul(e.IntensityFactor).Mul(dtH).Scale(100)
		if ftp.Valid() {
			icr := e.CompositeRatio.Or(0)
			e.FSSInc = Some(icr * icr * dt[i] / 3600 * 100)
		}

		if v, ok := e.TSSInc.Float(); ok {
			tssSum += v
			tssSeen = true
		}
		if v, ok := e.FSSInc.Float(); ok {
			fssSum += v
			fssSeen = true
		}
		if tssSeen {
			e.TSS = Some(tssSum)
		}
		if fssSeen {
			e.FSS = Some(fssSum)
		}

		tssInc[i] = e.TSSInc
		fssInc[i] = e.FSSInc
	}

	last := series.Samples[n-1]
	series.Totals = LoadTotals{TSS: last.TSS, FSS: last.FSS}

	// Display and plotting series
	maWindow := secondsToSamples(cfg.RollingWindowSeconds, step)
	tssMA := rollingMean(tssInc, maWindow)
	fssMA := rollingMean(fssInc, maWindow)

	smoothWindow := secondsToSamples(cfg.DisplaySmoothSeconds, step)
	powerFilled := make([]Num, n)
	for i, s := range samples {
		powerFilled[i] = Some(0)
		if s.PowerW != nil {
			powerFilled[i] = FromPtr(s.PowerW)
		}
	}
	powerSmooth := rollingMean(interpolateGaps(powerFilled), smoothWindow)
	hrSmooth := rollingMean(interpolateGaps(hr), smoothWindow)

	efr := make([]Num, n)
	icr := make([]Num, n)
	power := make([]Num, n)
	for i := range series.Samples {
		e := &series.Samples[i]
		e.TSSIncMA = tssMA[i]
		e.FSSIncMA = fssMA[i]
		e.PowerSmooth = powerSmooth[i]
		e.HRSmooth = hrSmooth[i]
		efr[i] = e.EfficiencyRatio
		icr[i] = e.CompositeRatio
		power[i] = powerFilled[i]
	}

	series.Summary = MetricSummary{
		DurationH:     (elapsed[n-1] - elapsed[0]) / 3600,
		AvgPower:      meanDefined(power),
		AvgHeartrate:  meanDefined(hr),
		AvgEfficiency: meanDefined(efr),
		AvgComposite:  meanDefined(icr),
	}

	return series, nil
}

// fillHeartrate replaces invalid HR with the trailing rolling mean of the
// gap-interpolated HR
func fillHeartrate(hr []Num, window int) []Num {
	fill := rollingMean(interpolateGaps(hr), window)
	out := make([]Num, len(hr))
	for i := range hr {
		if hr[i].Valid() {
			out[i] = hr[i]
		} else {
			out[i] = fill[i]
		}
	}
	return out
}

// DailyLoad represents training load for a single day
type DailyLoad struct {
	Date time.Time
	TSS  float64
}

// FitnessMetrics represents CTL/ATL/TSB for a day
type FitnessMetrics struct {
	Date time.Time
	CTL  float64 // Chronic Training Load (42-day EMA) - "Fitness"
	ATL  float64 // Acute Training Load (7-day EMA) - "Fatigue"
	TSB  float64 // Training Stress Balance (CTL - ATL) - "Form"
}

// CalculateFitnessTrend computes CTL/ATL/TSB from daily TSS totals.
// Days without an activity count as zero load.
func CalculateFitnessTrend(dailyLoads []DailyLoad) []FitnessMetrics {
	if len(dailyLoads) == 0 {
		return nil
	}

	loads := make([]DailyLoad, len(dailyLoads))
	copy(loads, dailyLoads)
	sort.Slice(loads, func(i, j int) bool {
		return loads[i].Date.Before(loads[j].Date)
	})

	ctlDecay := 2.0 / (42.0 + 1.0)
	atlDecay := 2.0 / (7.0 + 1.0)

	startDate := loads[0].Date.Truncate(24 * time.Hour)
	endDate := loads[len(loads)-1].Date.Truncate(24 * time.Hour)

	loadMap := make(map[string]float64)
	for _, dl := range loads {
		loadMap[dl.Date.Format("2006-01-02")] += dl.TSS // Sum multiple activities on same day
	}

	var metrics []FitnessMetrics
	var ctl, atl float64
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		tss := loadMap[d.Format("2006-01-02")]

		ctl = ctl + ctlDecay*(tss-ctl)
		atl = atl + atlDecay*(tss-atl)

		metrics = append(metrics, FitnessMetrics{
			Date: d,
			CTL:  ctl,
			ATL:  atl,
			TSB:  ctl - atl,
		})
	}

	return metrics
}

// FormDescription returns a human-readable description of TSB
func FormDescription(tsb float64) string {
	switch {
	case tsb > 25:
		return "Very fresh (possibly detrained)"
	case tsb > 10:
		return "Fresh and ready to race"
	case tsb > 0:
		return "Neutral - good for training"
	case tsb > -10:
		return "Slightly fatigued"
	case tsb > -25:
		return "Tired but building fitness"
	default:
		return "Very fatigued - rest needed"
	}
}
