package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"trainload/internal/service"
)

// TrendModel is the training load trend screen model
type TrendModel struct {
	svc     *service.AnalysisService
	page    *service.HistoryPage
	loading bool
	err     error
}

// NewTrendModel creates a new trend model
func NewTrendModel(svc *service.AnalysisService) TrendModel {
	return TrendModel{
		svc:     svc,
		loading: true,
	}
}

// Init initializes the trend screen
func (m TrendModel) Init() tea.Cmd {
	return m.loadData
}

type trendDataMsg struct {
	page *service.HistoryPage
	err  error
}

func (m TrendModel) loadData() tea.Msg {
	page, err := m.svc.History(5, 0)
	return trendDataMsg{page: page, err: err}
}

// Update handles messages
func (m TrendModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case trendDataMsg:
		m.loading = false
		m.err = msg.err
		m.page = msg.page
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadData
		}
	}
	return m, nil
}

// View renders the trend screen
func (m TrendModel) View() string {
	if m.loading {
		return "\n  Loading trend..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if m.page == nil || len(m.page.Trend) == 0 {
		return "\n  No load history yet. Analyze a few activities first."
	}

	var sections []string

	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, m.renderFitnessCard(), "  ", m.renderRecentCard()))

	if len(m.page.Trend) > 2 {
		sections = append(sections, m.renderChart())
	}

	help := statusStyle.Render("Press 'r' to refresh, '1' for the run list")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m TrendModel) renderFitnessCard() string {
	title := cardTitleStyle.Render("Current Form")
	f := m.page.Fitness

	lines := []string{
		RenderMetric("Fitness (CTL)", fmt.Sprintf("%.0f", f.CTL), ""),
		RenderMetric("Fatigue (ATL)", fmt.Sprintf("%.0f", f.ATL), ""),
		renderGraded("Form (TSB)", fmt.Sprintf("%+.0f", f.TSB), formGrade(f.TSB), ""),
		"",
		lipgloss.NewStyle().Foreground(mutedColor).Render(m.page.FormDescription),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(38).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m TrendModel) renderRecentCard() string {
	title := cardTitleStyle.Render("Recent Runs")

	if len(m.page.Runs) == 0 {
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, "No runs yet"))
	}

	rows := []string{tableHeaderStyle.Render(fmt.Sprintf("%-10s  %-18s  %6s  %6s", "Date", "Activity", "TSS", "FSS"))}
	for _, r := range m.page.Runs {
		date := r.CreatedAt.Format("Jan 02")
		if r.ActivityDate != nil {
			date = r.ActivityDate.Format("Jan 02")
		}
		rows = append(rows, tableRowStyle.Render(fmt.Sprintf("%-10s  %-18s  %6s  %6s",
			date,
			truncateName(r.SourceName, 18),
			formatPtr(r.TSS, "%.0f"),
			formatPtr(r.FSS, "%.0f"),
		)))
	}

	table := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, table))
}

func (m TrendModel) renderChart() string {
	title := cardTitleStyle.Render(fmt.Sprintf("Fitness and Fatigue - last %d days", len(m.page.Trend)))

	ctl := make([]float64, len(m.page.Trend))
	atl := make([]float64, len(m.page.Trend))
	for i, f := range m.page.Trend {
		ctl[i] = f.CTL
		atl[i] = f.ATL
	}

	graph := asciigraph.PlotMany([][]float64{ctl, atl},
		asciigraph.Height(8),
		asciigraph.Width(chartWidth),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
	)
	legend := lipgloss.JoinHorizontal(lipgloss.Left,
		lipgloss.NewStyle().Foreground(goodColor).Render("■ CTL  "),
		lipgloss.NewStyle().Foreground(poorColor).Render("■ ATL"),
	)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, graph, legend))
}
