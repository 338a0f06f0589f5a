package store

import "time"

// Run is one persisted analysis of one activity file
type Run struct {
	ID            string     `db:"id"` // uuid, assigned on save when empty
	CreatedAt     time.Time  `db:"created_at"`
	SourceName    string     `db:"source_name"`   // cleaned base name
	SourceFormat  string     `db:"source_format"` // "fit" or "tcx"
	ActivityDate  *time.Time `db:"activity_date"` // nullable
	Sport         string     `db:"sport"`
	Mode          string     `db:"mode"`
	FTP           float64    `db:"ftp_w"`
	ThresholdHR   float64    `db:"hr_threshold_bpm"`
	WindowMinutes float64    `db:"window_minutes"`
	SampleCount   int        `db:"sample_count"`
	DurationH     float64    `db:"duration_h"`

	TSS           *float64 `db:"tss"`
	FSS           *float64 `db:"fss"`
	AvgPower      *float64 `db:"avg_power"`
	AvgHeartrate  *float64 `db:"avg_heartrate"`
	AvgEfficiency *float64 `db:"avg_efficiency"`
	AvgComposite  *float64 `db:"avg_composite"`
	HRCoverage    float64  `db:"hr_coverage"`

	WindowStartS  *float64 `db:"window_start_s"`
	WindowEndS    *float64 `db:"window_end_s"`
	WindowScore   *float64 `db:"window_score"`
	WindowFailure *string  `db:"window_failure"`

	Efficiency        *float64 `db:"efficiency"`
	DriftPct          *float64 `db:"drift_pct"`
	DecouplingFailure *string  `db:"decoupling_failure"`

	VT2PowerW        *float64 `db:"vt2_power_w"`
	VT2Heartrate     *float64 `db:"vt2_heartrate"`
	VT2Confidence    *float64 `db:"vt2_confidence"`
	VT2Fallback      bool     `db:"vt2_fallback"`
	ThresholdFailure *string  `db:"threshold_failure"`

	ExportPath *string `db:"export_path"`
}

// DailyLoad is the summed load of every run on one activity day
type DailyLoad struct {
	Date string  `db:"date"` // YYYY-MM-DD
	TSS  float64 `db:"tss"`
	Runs int     `db:"runs"`
}
