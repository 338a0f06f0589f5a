package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trainload/internal/analysis"
	"trainload/internal/service"
	"trainload/internal/store"
)

// RunDetailModel is the stored run detail screen model
type RunDetailModel struct {
	svc      *service.AnalysisService
	runID    string
	run      *store.Run
	viewport viewport.Model
	loading  bool
	err      error
	width    int
	height   int
	ready    bool
}

// NewRunDetailModel creates a new run detail model
func NewRunDetailModel(svc *service.AnalysisService, runID string, width, height int) RunDetailModel {
	m := RunDetailModel{
		svc:     svc,
		runID:   runID,
		loading: true,
		width:   width,
		height:  height,
	}

	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6) // Reserve space for header/footer
		m.ready = true
	}

	return m
}

// Init initializes the run detail screen
func (m RunDetailModel) Init() tea.Cmd {
	return m.loadRun
}

type runLoadedMsg struct {
	run *store.Run
	err error
}

func (m RunDetailModel) loadRun() tea.Msg {
	run, err := m.svc.GetRun(m.runID)
	return runLoadedMsg{run: run, err: err}
}

// Update handles messages
func (m RunDetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.run = msg.run
		if m.ready {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		if m.run != nil {
			m.viewport.SetContent(m.renderContent())
		}
	}

	// Handle viewport scrolling
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the run detail screen
func (m RunDetailModel) View() string {
	if m.loading {
		return "\n  Loading run..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render("  esc: back to list  j/k or arrows: scroll")

	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m RunDetailModel) renderContent() string {
	if m.run == nil {
		return "No data"
	}
	return RenderRun(m.run)
}

// RenderRun renders a stored run
func RenderRun(r *store.Run) string {
	var sections []string

	date := "unknown date"
	if r.ActivityDate != nil {
		date = formatWhen(*r.ActivityDate)
	}
	title := cardTitleStyle.Render(r.SourceName)
	subtitle := lipgloss.NewStyle().Foreground(mutedColor).Render(
		fmt.Sprintf("%s  •  %s  •  %s file  •  run %s", date, r.Sport, r.SourceFormat, r.ID))
	params := lipgloss.NewStyle().Foreground(textColor).Bold(true).Render(
		fmt.Sprintf("FTP %.0f W  •  threshold HR %.0f bpm  •  %.0f min %s window",
			r.FTP, r.ThresholdHR, r.WindowMinutes, r.Mode))
	sections = append(sections, lipgloss.JoinVertical(lipgloss.Left, "", title, subtitle, params, ""))

	load := []string{
		sectionStyle.Render("Load"),
		RenderMetric("Duration", formatSeconds(r.DurationH*3600), ""),
		RenderMetric("TSS", formatPtr(r.TSS, "%.1f"), ""),
		RenderMetric("FSS", formatPtr(r.FSS, "%.1f"), ""),
		RenderMetric("Avg power", formatPtr(r.AvgPower, "%.0f W"), ""),
		RenderMetric("Avg HR", formatPtr(r.AvgHeartrate, "%.0f bpm"), ""),
		RenderMetric("Avg EFR", formatPtr(r.AvgEfficiency, "%.2f"), ""),
		RenderMetric("Avg ICR", formatPtr(r.AvgComposite, "%.2f"), ""),
		RenderCoverage(r.HRCoverage, 12),
	}
	sections = append(sections, lipgloss.JoinVertical(lipgloss.Left, load...), "")

	window := []string{sectionStyle.Render("Window")}
	if r.WindowStartS != nil && r.WindowEndS != nil {
		window = append(window,
			RenderMetric("From", formatSeconds(*r.WindowStartS)+" to "+formatSeconds(*r.WindowEndS), ""),
			RenderMetric("Score", formatPtr(r.WindowScore, "%.1f"), ""),
		)
	} else if r.WindowFailure != nil {
		window = append(window, warningStyle.Render("  "+*r.WindowFailure))
	}
	if r.DriftPct != nil {
		window = append(window,
			RenderMetric("Efficiency", formatPtr(r.Efficiency, "%.3f"), ""),
			RenderDrift(analysis.FromPtr(r.DriftPct)),
		)
	} else if r.DecouplingFailure != nil {
		window = append(window, warningStyle.Render("  "+*r.DecouplingFailure))
	}
	sections = append(sections, lipgloss.JoinVertical(lipgloss.Left, window...), "")

	vt2 := []string{sectionStyle.Render("VT2")}
	if r.VT2PowerW != nil {
		vt2 = append(vt2,
			RenderMetric("Power", formatPtr(r.VT2PowerW, "%.0f W"), ""),
			RenderMetric("Heart rate", formatPtr(r.VT2Heartrate, "%.0f bpm"), ""),
		)
		if r.VT2Confidence != nil {
			vt2 = append(vt2, RenderConfidence(*r.VT2Confidence))
		}
		if r.VT2Fallback {
			vt2 = append(vt2, warningStyle.Render("  outside the search band"))
		}
	} else if r.ThresholdFailure != nil {
		vt2 = append(vt2, warningStyle.Render("  "+*r.ThresholdFailure))
	}
	sections = append(sections, lipgloss.JoinVertical(lipgloss.Left, vt2...))

	if r.ExportPath != nil {
		sections = append(sections, statusStyle.Render("exported to "+*r.ExportPath))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
