package export

import (
	"encoding/json"
	"io"
	"time"

	"trainload/internal/analysis"
)

// Summary is the JSON document written next to a sample export.
// Undefined numbers encode as null.
type Summary struct {
	Source       string     `json:"source"`
	ActivityDate *time.Time `json:"activity_date"`
	Sport        string     `json:"sport"`
	Mode         string     `json:"mode"`
	FTP          float64    `json:"ftp_w"`
	ThresholdHR  float64    `json:"hr_threshold_bpm"`
	WindowMin    float64    `json:"window_minutes"`

	Samples    int                        `json:"samples"`
	Totals     analysis.LoadTotals        `json:"totals"`
	Averages   analysis.MetricSummary     `json:"averages"`
	HRCoverage float64                    `json:"hr_coverage"`
	Window     *WindowSummary             `json:"window"`
	Decoupling *analysis.DecouplingResult `json:"decoupling"`
	Threshold  *ThresholdSummary          `json:"threshold"`
	Failures   map[string]string          `json:"failures,omitempty"`
}

// WindowSummary describes the selected analysis window
type WindowSummary struct {
	StartS     float64      `json:"start_s"`
	EndS       float64      `json:"end_s"`
	Score      float64      `json:"score"`
	CV         analysis.Num `json:"cv"`
	HRCoverage float64      `json:"hr_coverage"`
}

// ThresholdSummary describes the VT2 estimate
type ThresholdSummary struct {
	PowerW     float64      `json:"power_w"`
	Heartrate  float64      `json:"hr_bpm"`
	StartS     float64      `json:"start_s"`
	EndS       float64      `json:"end_s"`
	Confidence float64      `json:"confidence"`
	Flags      []string     `json:"flags"`
	BandLowW   float64      `json:"band_low_w"`
	BandHighW  float64      `json:"band_high_w"`
	Fallback   bool         `json:"fallback"`
}

// NewSummary flattens an analysis for export. activityDate may be zero.
func NewSummary(source string, activityDate time.Time, a *analysis.ActivityAnalysis) Summary {
	s := Summary{
		Source:      source,
		Sport:       string(a.Sport),
		Mode:        string(a.Params.Mode),
		FTP:         a.Params.FTP,
		ThresholdHR: a.Params.ThresholdHR,
		WindowMin:   a.Params.WindowMinutes,
		HRCoverage:  a.HRCoverage,
		Decoupling:  a.Decoupling,
	}
	if !activityDate.IsZero() {
		s.ActivityDate = &activityDate
	}
	if a.Metrics != nil {
		s.Samples = len(a.Metrics.Samples)
		s.Totals = a.Metrics.Totals
		s.Averages = a.Metrics.Summary
	}
	if w := a.Window; w != nil {
		s.Window = &WindowSummary{
			StartS:     w.StartS,
			EndS:       w.EndS,
			Score:      w.Score,
			CV:         w.CV,
			HRCoverage: w.HRCoverage,
		}
	}
	if t := a.Threshold; t != nil {
		s.Threshold = &ThresholdSummary{
			PowerW:     t.MeanPower,
			Heartrate:  t.MeanHR,
			StartS:     t.StartS,
			EndS:       t.EndS,
			Confidence: t.Confidence,
			Flags:      t.Flags,
			BandLowW:   t.BandLowW,
			BandHighW:  t.BandHighW,
			Fallback:   t.Fallback,
		}
	}

	failures := map[string]string{}
	if a.WindowFailure != nil {
		failures["window"] = a.WindowFailure.Error()
	}
	if a.DecouplingFailure != nil {
		failures["decoupling"] = a.DecouplingFailure.Error()
	}
	if a.ThresholdErr != nil {
		failures["threshold"] = a.ThresholdErr.Error()
	}
	if len(failures) > 0 {
		s.Failures = failures
	}
	return s
}

// WriteSummaryJSON writes s as indented JSON
func WriteSummaryJSON(out io.Writer, s Summary) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
