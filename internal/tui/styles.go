package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"trainload/internal/analysis"
)

// Palette. Good/fair/poor double as the TSS, FSS and ATL chart colours so
// legends match asciigraph's Green, Goldenrod and Red.
var (
	accentColor = lipgloss.Color("#0EA5E9") // sky
	goodColor   = lipgloss.Color("#22C55E")
	fairColor   = lipgloss.Color("#EAB308")
	poorColor   = lipgloss.Color("#EF4444")
	mutedColor  = lipgloss.Color("#64748B")
	textColor   = lipgloss.Color("#F8FAFC")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(accentColor).
			Padding(0, 1).
			MarginBottom(1)

	navStyle         = lipgloss.NewStyle().Foreground(mutedColor).MarginBottom(1)
	navActiveStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	navInactiveStyle = lipgloss.NewStyle().Foreground(mutedColor)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 2)

	cardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(goodColor)

	metricLabelStyle = lipgloss.NewStyle().Foreground(mutedColor).Width(16)
	metricValueStyle = lipgloss.NewStyle().Bold(true).Foreground(textColor)
	noteStyle        = lipgloss.NewStyle().Foreground(mutedColor)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accentColor).
				Padding(0, 1)
	tableRowStyle      = lipgloss.NewStyle().Padding(0, 1)
	tableSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				Background(accentColor).
				Foreground(textColor).
				Padding(0, 1)

	statusStyle  = lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1)
	errorStyle   = lipgloss.NewStyle().Foreground(poorColor)
	warningStyle = lipgloss.NewStyle().Foreground(fairColor)

	helpKeyStyle  = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	helpDescStyle = lipgloss.NewStyle().Foreground(mutedColor)

	progressEmptyStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// grade buckets a metric for colouring
type grade int

const (
	gradeNone grade = iota
	gradeGood
	gradeFair
	gradePoor
)

func (g grade) style() lipgloss.Style {
	switch g {
	case gradeGood:
		return lipgloss.NewStyle().Foreground(goodColor)
	case gradeFair:
		return lipgloss.NewStyle().Foreground(fairColor)
	case gradePoor:
		return lipgloss.NewStyle().Foreground(poorColor)
	}
	return lipgloss.NewStyle().Foreground(textColor)
}

// driftGrade follows the DecouplingAssessment bands
func driftGrade(driftPct float64) grade {
	d := driftPct
	if d < 0 {
		d = -d
	}
	switch {
	case d < 5:
		return gradeGood
	case d < 8:
		return gradeFair
	}
	return gradePoor
}

func confidenceGrade(confidence float64) grade {
	switch {
	case confidence >= 0.8:
		return gradeGood
	case confidence >= 0.5:
		return gradeFair
	}
	return gradePoor
}

func coverageGrade(coverage float64) grade {
	switch {
	case coverage >= 0.9:
		return gradeGood
	case coverage >= 0.8:
		return gradeFair
	}
	return gradePoor
}

// formGrade grades training stress balance: fresh is good, deep fatigue poor
func formGrade(tsb float64) grade {
	switch {
	case tsb >= -10:
		return gradeGood
	case tsb >= -25:
		return gradeFair
	}
	return gradePoor
}

// RenderMetric renders a label, a value and an optional muted note
func RenderMetric(label, value, note string) string {
	return renderGraded(label, value, gradeNone, note)
}

func renderGraded(label, value string, g grade, note string) string {
	valueStyle := metricValueStyle
	if g != gradeNone {
		valueStyle = g.style().Bold(true)
	}
	parts := []string{metricLabelStyle.Render(label), valueStyle.Render(value)}
	if note != "" {
		parts = append(parts, noteStyle.Render("  "+note))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}

// RenderDrift renders a decoupling drift coloured by its assessment band
func RenderDrift(drift analysis.Num) string {
	v, ok := drift.Float()
	if !ok {
		return RenderMetric("Drift", "-", "")
	}
	return renderGraded("Drift", formatNum(drift, "%+.1f%%"), driftGrade(v), analysis.DecouplingAssessment(v))
}

// RenderConfidence renders a VT2 confidence with its label
func RenderConfidence(confidence float64) string {
	return renderGraded("Confidence", formatNum(analysis.Some(confidence), "%.2f"),
		confidenceGrade(confidence), analysis.ConfidenceLabel(confidence))
}

// RenderCoverage renders HR coverage as a bar coloured against the
// decoupling gates
func RenderCoverage(coverage float64, width int) string {
	bar := renderBar(coverage, width, coverageGrade(coverage).style())
	return metricLabelStyle.Render("HR coverage") + bar +
		noteStyle.Render(" "+formatNum(analysis.Some(coverage*100), "%.0f%%")+" "+analysis.CoverageDescription(coverage))
}

// RenderProgressBar renders a progress bar for a fraction in [0, 1]
func RenderProgressBar(fraction float64, width int) string {
	return renderBar(fraction, width, gradeGood.style())
}

func renderBar(fraction float64, width int, full lipgloss.Style) string {
	filled := int(fraction * float64(width))
	filled = max(0, min(filled, width))

	var b strings.Builder
	b.WriteString(full.Render(strings.Repeat("█", filled)))
	b.WriteString(progressEmptyStyle.Render(strings.Repeat("░", width-filled)))
	return b.String()
}

// RenderKeyHelp renders a key binding help item
func RenderKeyHelp(key, desc string) string {
	return helpKeyStyle.Render(key) + " " + helpDescStyle.Render(desc)
}
