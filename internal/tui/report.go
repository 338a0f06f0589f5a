package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"trainload/internal/analysis"
	"trainload/internal/service"
)

const chartWidth = 60

// RenderReport renders one analyzed activity as a set of cards for the terminal
func RenderReport(res *service.FileResult) string {
	a := res.Analysis
	var sections []string

	title := titleStyle.Render(res.Meta.BaseName)
	subtitle := lipgloss.NewStyle().Foreground(mutedColor).Render(fmt.Sprintf("%s  •  %s  •  %s samples",
		formatWhen(res.Meta.Date), a.Sport, humanize.Comma(int64(len(a.Metrics.Samples)))))
	sections = append(sections, lipgloss.JoinVertical(lipgloss.Left, title, subtitle))

	top := lipgloss.JoinHorizontal(lipgloss.Top, renderLoadCard(a), "  ", renderWindowCard(a))
	sections = append(sections, top)
	sections = append(sections, renderThresholdCard(a))

	if chart := renderLoadChart(a.Metrics); chart != "" {
		sections = append(sections, chart)
	}

	var footer []string
	if res.RunID != "" {
		footer = append(footer, "saved as run "+res.RunID)
	}
	for _, p := range res.ExportPaths {
		footer = append(footer, "wrote "+p)
	}
	if len(footer) > 0 {
		sections = append(sections, statusStyle.Render(strings.Join(footer, "\n")))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func renderLoadCard(a *analysis.ActivityAnalysis) string {
	title := cardTitleStyle.Render("Load")
	m := a.Metrics

	lines := []string{
		RenderMetric("Duration", formatSeconds(m.Summary.DurationH*3600), ""),
		RenderMetric("TSS", formatNum(m.Totals.TSS, "%.1f"), ""),
		RenderMetric("FSS", formatNum(m.Totals.FSS, "%.1f"), ""),
		RenderMetric("Avg power", formatNum(m.Summary.AvgPower, "%.0f W"), ""),
		RenderMetric("Avg HR", formatNum(m.Summary.AvgHeartrate, "%.0f bpm"), ""),
		RenderMetric("Avg EFR", formatNum(m.Summary.AvgEfficiency, "%.2f"), ""),
		RenderMetric("Avg ICR", formatNum(m.Summary.AvgComposite, "%.2f"), ""),
		"",
		RenderCoverage(a.HRCoverage, 12),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(40).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func renderWindowCard(a *analysis.ActivityAnalysis) string {
	title := cardTitleStyle.Render(fmt.Sprintf("Best %.0f min (%s)", a.Params.WindowMinutes, a.Params.Mode))

	var lines []string
	if w := a.Window; w != nil {
		unit := "W"
		if a.Sport == analysis.SportRun {
			unit = "km/h"
		}
		lines = append(lines,
			RenderMetric("From", formatSeconds(w.StartS)+" to "+formatSeconds(w.EndS), ""),
			RenderMetric("Mean", fmt.Sprintf("%.1f %s", w.Score, unit), ""),
			RenderMetric("CV", formatNum(w.CV, "%.3f"), ""),
		)
	} else {
		lines = append(lines, warningStyle.Render("No window: "+a.WindowFailure.Error()))
	}

	lines = append(lines, "")
	if d := a.Decoupling; d != nil {
		lines = append(lines,
			RenderMetric("Efficiency", formatNum(d.Efficiency, "%.3f"), ""),
			RenderDrift(d.DriftPct),
		)
	} else if a.DecouplingFailure != nil {
		lines = append(lines, warningStyle.Render("No decoupling: "+a.DecouplingFailure.Error()))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(40).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func renderThresholdCard(a *analysis.ActivityAnalysis) string {
	title := cardTitleStyle.Render("VT2 estimate")

	t := a.Threshold
	if t == nil {
		msg := "not available"
		if a.ThresholdErr != nil {
			msg = a.ThresholdErr.Error()
		}
		return cardStyle.Width(82).Render(lipgloss.JoinVertical(lipgloss.Left, title, warningStyle.Render(msg)))
	}

	lines := []string{
		RenderMetric("Power", fmt.Sprintf("%.0f W", t.MeanPower), ""),
		RenderMetric("Heart rate", fmt.Sprintf("%.0f bpm", t.MeanHR), ""),
		RenderMetric("Window", formatSeconds(t.StartS)+" to "+formatSeconds(t.EndS), ""),
		RenderConfidence(t.Confidence),
		RenderMetric("Search band", fmt.Sprintf("%.0f-%.0f W", t.BandLowW, t.BandHighW), ""),
		RenderMetric("Signals", strings.Join(t.Flags, ", "), ""),
	}
	if t.Fallback {
		lines = append(lines, warningStyle.Render("No candidate inside the band; showing the best overall"))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(82).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

// renderLoadChart plots cumulative TSS and FSS
func renderLoadChart(m *analysis.MetricSeries) string {
	tss := make([]float64, 0, len(m.Samples))
	fss := make([]float64, 0, len(m.Samples))
	for _, s := range m.Samples {
		tss = append(tss, s.TSS.Or(0))
		fss = append(fss, s.FSS.Or(0))
	}
	if len(tss) < 3 {
		return ""
	}

	title := cardTitleStyle.Render("Cumulative load")
	legend := lipgloss.JoinHorizontal(lipgloss.Left,
		lipgloss.NewStyle().Foreground(goodColor).Render("■ TSS  "),
		lipgloss.NewStyle().Foreground(fairColor).Render("■ FSS"),
	)
	graph := asciigraph.PlotMany([][]float64{downsample(tss, chartWidth), downsample(fss, chartWidth)},
		asciigraph.Height(8),
		asciigraph.Width(chartWidth),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Goldenrod),
	)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, graph, legend))
}
