package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"trainload/internal/analysis"
)

// Columns is the column order shared by the CSV and Parquet exports
var Columns = []string{
	"elapsed_s", "dt_s", "power_w", "hr_bpm", "speed_kmh",
	"pct_ftp", "pct_hr", "efficiency_ratio", "intensity_factor", "composite_ratio",
	"tss_inc", "fss_inc", "tss", "fss", "tss_inc_ma", "fss_inc_ma",
	"power_smooth", "hr_smooth", "in_window",
}

// WriteCSV writes one row per enriched sample. Undefined values are empty cells.
func WriteCSV(out io.Writer, series *analysis.MetricSeries, w *analysis.Window) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for i, s := range series.Samples {
		r := toRow(i, s, w)
		row := []string{
			formatFloat(r.ElapsedS),
			formatFloat(r.DtS),
			formatNum(r.PowerW),
			formatNum(r.HRBPM),
			formatNum(r.SpeedKmh),
			formatNum(r.PctFTP),
			formatNum(r.PctHR),
			formatNum(r.EfficiencyRatio),
			formatNum(r.IntensityFactor),
			formatNum(r.CompositeRatio),
			formatNum(r.TSSInc),
			formatNum(r.FSSInc),
			formatNum(r.TSS),
			formatNum(r.FSS),
			formatNum(r.TSSIncMA),
			formatNum(r.FSSIncMA),
			formatNum(r.PowerSmooth),
			formatNum(r.HRSmooth),
			strconv.FormatBool(r.InWindow),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatNum renders NaN as an empty cell
func formatNum(v float64) string {
	n := analysis.Some(v)
	if !n.Valid() {
		return ""
	}
	return formatFloat(v)
}
