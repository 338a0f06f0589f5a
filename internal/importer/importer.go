// Package importer reads device activity files into analysis samples.
package importer

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"trainload/internal/analysis"
)

// ErrUnsupportedFormat is returned for files that are neither FIT nor TCX
var ErrUnsupportedFormat = errors.New("unsupported activity format")

// Format identifies an activity file encoding
type Format string

const (
	FormatFIT Format = "fit"
	FormatTCX Format = "tcx"
)

// Meta describes where a sample series came from
type Meta struct {
	BaseName  string
	Format    Format
	Date      time.Time // first valid timestamp, zero if unknown
	SportHint analysis.Sport
}

// Load reads a .fit, .tcx or .tcx.gz file
func Load(path string) ([]analysis.Sample, Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("opening activity file: %w", err)
	}
	defer f.Close()

	return Decode(f, filepath.Base(path))
}

// Decode reads an activity from r, picking the decoder from the file name.
func Decode(r io.Reader, name string) ([]analysis.Sample, Meta, error) {
	format, gzipped, ok := DetectFormat(name)
	if !ok {
		return nil, Meta{}, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}

	if gzipped {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, Meta{}, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var (
		points []point
		meta   Meta
		err    error
	)
	switch format {
	case FormatFIT:
		points, meta, err = decodeFIT(r)
	case FormatTCX:
		points, meta, err = decodeTCX(r)
	}
	if err != nil {
		return nil, Meta{}, err
	}

	meta.BaseName = CleanBaseName(name)
	meta.Format = format
	samples, start := toSamples(points)
	meta.Date = start
	return samples, meta, nil
}

// DetectFormat maps a file name to its format. Extensions are case-insensitive.
func DetectFormat(name string) (format Format, gzipped bool, ok bool) {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".gz") {
		gzipped = true
		lower = strings.TrimSuffix(lower, ".gz")
	}
	switch {
	case strings.HasSuffix(lower, ".fit"):
		return FormatFIT, gzipped, true
	case strings.HasSuffix(lower, ".tcx"):
		return FormatTCX, gzipped, true
	}
	return "", false, false
}

// CleanBaseName strips directories and the activity extensions from name:
// "rides/Morning.TCX.gz" becomes "Morning".
func CleanBaseName(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	if strings.HasSuffix(strings.ToLower(base), ".gz") {
		base = base[:len(base)-3]
	}
	for _, ext := range []string{".tcx", ".fit"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}
	base = strings.TrimSpace(base)
	if base == "" {
		return "activity"
	}
	return base
}

// point is one timestamped reading before conversion to elapsed time
type point struct {
	ts        time.Time
	power     *float64
	heartrate *int
	speedKmh  *float64
}

// toSamples orders points by time and converts timestamps to seconds since the
// earliest one. Ties keep file order.
func toSamples(points []point) ([]analysis.Sample, time.Time) {
	if len(points) == 0 {
		return nil, time.Time{}
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].ts.Before(points[j].ts)
	})

	start := points[0].ts
	samples := make([]analysis.Sample, len(points))
	for i, p := range points {
		samples[i] = analysis.Sample{
			ElapsedS:  p.ts.Sub(start).Seconds(),
			PowerW:    p.power,
			Heartrate: p.heartrate,
			SpeedKmh:  p.speedKmh,
		}
	}
	return samples, start
}

func sportFromName(name string) analysis.Sport {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "biking", "cycling", "bike", "ride":
		return analysis.SportBike
	case "running", "run":
		return analysis.SportRun
	}
	return analysis.SportAuto
}
