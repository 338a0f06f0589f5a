// Package export writes enriched sample series and analysis summaries.
package export

import (
	"fmt"
	"io"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"trainload/internal/analysis"
)

// sampleRow mirrors Columns. Undefined values are written as NaN.
type sampleRow struct {
	ElapsedS        float64 `parquet:"name=elapsed_s, type=DOUBLE"`
	DtS             float64 `parquet:"name=dt_s, type=DOUBLE"`
	PowerW          float64 `parquet:"name=power_w, type=DOUBLE"`
	HRBPM           float64 `parquet:"name=hr_bpm, type=DOUBLE"`
	SpeedKmh        float64 `parquet:"name=speed_kmh, type=DOUBLE"`
	PctFTP          float64 `parquet:"name=pct_ftp, type=DOUBLE"`
	PctHR           float64 `parquet:"name=pct_hr, type=DOUBLE"`
	EfficiencyRatio float64 `parquet:"name=efficiency_ratio, type=DOUBLE"`
	IntensityFactor float64 `parquet:"name=intensity_factor, type=DOUBLE"`
	CompositeRatio  float64 `parquet:"name=composite_ratio, type=DOUBLE"`
	TSSInc          float64 `parquet:"name=tss_inc, type=DOUBLE"`
	FSSInc          float64 `parquet:"name=fss_inc, type=DOUBLE"`
	TSS             float64 `parquet:"name=tss, type=DOUBLE"`
	FSS             float64 `parquet:"name=fss, type=DOUBLE"`
	TSSIncMA        float64 `parquet:"name=tss_inc_ma, type=DOUBLE"`
	FSSIncMA        float64 `parquet:"name=fss_inc_ma, type=DOUBLE"`
	PowerSmooth     float64 `parquet:"name=power_smooth, type=DOUBLE"`
	HRSmooth        float64 `parquet:"name=hr_smooth, type=DOUBLE"`
	InWindow        bool    `parquet:"name=in_window, type=BOOLEAN"`
}

// WriteParquet writes one row per enriched sample, SNAPPY compressed.
// Samples inside w (if non-nil) are flagged in_window.
func WriteParquet(out io.Writer, series *analysis.MetricSeries, w *analysis.Window) error {
	data, err := marshalParquet(series, w)
	if err != nil {
		return fmt.Errorf("encoding parquet: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func marshalParquet(series *analysis.MetricSeries, w *analysis.Window) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(sampleRow), 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, s := range series.Samples {
		if err := pw.Write(toRow(i, s, w)); err != nil {
			_ = pw.WriteStop()
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

func toRow(i int, s analysis.EnrichedSample, w *analysis.Window) sampleRow {
	var hr analysis.Num
	if s.Heartrate != nil && *s.Heartrate > 0 {
		hr = analysis.Some(float64(*s.Heartrate))
	}
	return sampleRow{
		ElapsedS:        s.ElapsedS,
		DtS:             s.DtS,
		PowerW:          analysis.FromPtr(s.PowerW).NaN(),
		HRBPM:           hr.NaN(),
		SpeedKmh:        analysis.FromPtr(s.SpeedKmh).NaN(),
		PctFTP:          s.PctFTP.NaN(),
		PctHR:           s.PctHR.NaN(),
		EfficiencyRatio: s.EfficiencyRatio.NaN(),
		IntensityFactor: s.IntensityFactor.NaN(),
		CompositeRatio:  s.CompositeRatio.NaN(),
		TSSInc:          s.TSSInc.NaN(),
		FSSInc:          s.FSSInc.NaN(),
		TSS:             s.TSS.NaN(),
		FSS:             s.FSS.NaN(),
		TSSIncMA:        s.TSSIncMA.NaN(),
		FSSIncMA:        s.FSSIncMA.NaN(),
		PowerSmooth:     s.PowerSmooth.NaN(),
		HRSmooth:        s.HRSmooth.NaN(),
		InWindow:        inWindow(i, w),
	}
}

func inWindow(i int, w *analysis.Window) bool {
	return w != nil && i >= w.StartIndex && i < w.EndIndex
}
