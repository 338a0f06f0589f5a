package tui

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"trainload/internal/analysis"
)

// formatNum formats a defined value with format, "-" otherwise
func formatNum(n analysis.Num, format string) string {
	v, ok := n.Float()
	if !ok {
		return "-"
	}
	return fmt.Sprintf(format, v)
}

// formatPtr is formatNum for nullable store columns
func formatPtr(p *float64, format string) string {
	return formatNum(analysis.FromPtr(p), format)
}

// formatSeconds formats seconds as "H:MM:SS" or "M:SS"
func formatSeconds(seconds float64) string {
	total := int(seconds + 0.5)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// formatWhen renders a date with a relative hint, "Mar 01 2025 (2 weeks ago)"
func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "unknown date"
	}
	return fmt.Sprintf("%s (%s)", t.Format("Jan 02 2006"), humanize.Time(t))
}

// truncateName shortens s to max runes with an ellipsis
func truncateName(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// downsample keeps at most width points by averaging buckets
func downsample(xs []float64, width int) []float64 {
	if width <= 0 || len(xs) <= width {
		return xs
	}
	out := make([]float64, width)
	bucket := float64(len(xs)) / float64(width)
	for i := range out {
		lo := int(float64(i) * bucket)
		hi := int(float64(i+1) * bucket)
		if hi > len(xs) {
			hi = len(xs)
		}
		if hi <= lo {
			hi = lo + 1
		}
		var sum float64
		for _, v := range xs[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}
