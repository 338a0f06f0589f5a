package service

import (
	"fmt"

	"trainload/internal/analysis"
	"trainload/internal/importer"
	"trainload/internal/store"
)

// runFromAnalysis flattens an analysis into a history row
func runFromAnalysis(meta importer.Meta, a *analysis.ActivityAnalysis, exportPath string) *store.Run {
	r := &store.Run{
		SourceName:    meta.BaseName,
		SourceFormat:  string(meta.Format),
		Sport:         string(a.Sport),
		Mode:          string(a.Params.Mode),
		FTP:           a.Params.FTP,
		ThresholdHR:   a.Params.ThresholdHR,
		WindowMinutes: a.Params.WindowMinutes,
		HRCoverage:    a.HRCoverage,
	}
	if !meta.Date.IsZero() {
		d := meta.Date
		r.ActivityDate = &d
	}
	if exportPath != "" {
		r.ExportPath = &exportPath
	}

	if m := a.Metrics; m != nil {
		r.SampleCount = len(m.Samples)
		r.DurationH = m.Summary.DurationH
		r.TSS = m.Totals.TSS.Ptr()
		r.FSS = m.Totals.FSS.Ptr()
		r.AvgPower = m.Summary.AvgPower.Ptr()
		r.AvgHeartrate = m.Summary.AvgHeartrate.Ptr()
		r.AvgEfficiency = m.Summary.AvgEfficiency.Ptr()
		r.AvgComposite = m.Summary.AvgComposite.Ptr()
	}

	if w := a.Window; w != nil {
		r.WindowStartS = floatPtr(w.StartS)
		r.WindowEndS = floatPtr(w.EndS)
		r.WindowScore = floatPtr(w.Score)
	}
	r.WindowFailure = errString(a.WindowFailure)

	if d := a.Decoupling; d != nil {
		r.Efficiency = d.Efficiency.Ptr()
		r.DriftPct = d.DriftPct.Ptr()
	}
	r.DecouplingFailure = errString(a.DecouplingFailure)

	if t := a.Threshold; t != nil {
		r.VT2PowerW = floatPtr(t.MeanPower)
		r.VT2Heartrate = floatPtr(t.MeanHR)
		r.VT2Confidence = floatPtr(t.Confidence)
		r.VT2Fallback = t.Fallback
	}
	r.ThresholdFailure = errString(a.ThresholdErr)

	return r
}

func floatPtr(v float64) *float64 {
	return &v
}

func errString(err error) *string {
	if err == nil {
		return nil
	}
	s := err.Error()
	return &s
}

// formatDuration formats hours as "H:MM:SS" or "M:SS"
func formatDuration(hours float64) string {
	seconds := int(hours*3600 + 0.5)
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// RunLabel is a one-line description of a stored run for lists
func RunLabel(r store.Run) string {
	date := r.CreatedAt.Format("2006-01-02")
	if r.ActivityDate != nil {
		date = r.ActivityDate.Format("2006-01-02")
	}
	return fmt.Sprintf("%s %s (%s, %s)", date, r.SourceName, r.Sport, formatDuration(r.DurationH))
}
