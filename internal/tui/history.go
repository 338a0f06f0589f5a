package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"trainload/internal/service"
	"trainload/internal/store"
)

// HistoryModel is the stored runs list screen model
type HistoryModel struct {
	svc      *service.AnalysisService
	runs     []store.Run
	cursor   int
	offset   int
	total    int
	pageSize int
	loading  bool
	err      error
}

// NewHistoryModel creates a new history model
func NewHistoryModel(svc *service.AnalysisService) HistoryModel {
	return HistoryModel{
		svc:      svc,
		pageSize: 15,
		loading:  true,
	}
}

// Init initializes the history screen
func (m HistoryModel) Init() tea.Cmd {
	return m.loadPage
}

type historyLoadedMsg struct {
	runs  []store.Run
	total int
	err   error
}

// OpenRunMsg asks the app to show one run
type OpenRunMsg struct {
	RunID string
}

func (m HistoryModel) loadPage() tea.Msg {
	page, err := m.svc.History(m.pageSize, m.offset)
	if err != nil {
		return historyLoadedMsg{err: err}
	}
	return historyLoadedMsg{runs: page.Runs, total: page.Total}
}

// Update handles messages
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.runs = msg.runs
		m.total = msg.total
		if m.cursor >= len(m.runs) {
			m.cursor = max(len(m.runs)-1, 0)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			} else if m.offset > 0 {
				// Go to previous page
				m.offset -= m.pageSize
				m.cursor = m.pageSize - 1
				m.loading = true
				return m, m.loadPage
			}
		case "down", "j":
			if m.cursor < len(m.runs)-1 {
				m.cursor++
			} else if m.offset+len(m.runs) < m.total {
				// Go to next page
				m.offset += m.pageSize
				m.cursor = 0
				m.loading = true
				return m, m.loadPage
			}
		case "pgup":
			if m.offset > 0 {
				m.offset -= m.pageSize
				if m.offset < 0 {
					m.offset = 0
				}
				m.cursor = 0
				m.loading = true
				return m, m.loadPage
			}
		case "pgdown":
			if m.offset+m.pageSize < m.total {
				m.offset += m.pageSize
				m.cursor = 0
				m.loading = true
				return m, m.loadPage
			}
		case "r":
			m.loading = true
			return m, m.loadPage
		case "enter":
			if len(m.runs) > 0 && m.cursor < len(m.runs) {
				id := m.runs[m.cursor].ID
				return m, func() tea.Msg {
					return OpenRunMsg{RunID: id}
				}
			}
		}
	}
	return m, nil
}

// View renders the history list
func (m HistoryModel) View() string {
	if m.loading {
		return "\n  Loading history..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if len(m.runs) == 0 {
		return "\n  No runs stored yet. Analyze a file with 'trainload analyze FILE'."
	}

	var sections []string

	// Title with pagination info
	startNum := m.offset + 1
	endNum := m.offset + len(m.runs)
	title := cardTitleStyle.Render(fmt.Sprintf("Analysis history (%d-%d of %d)", startNum, endNum, m.total))
	sections = append(sections, title)

	sections = append(sections, tableHeaderStyle.Render("  "+historyHeader()))

	for i, r := range m.runs {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		row := cursor + historyRow(r)
		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	// Help
	help := statusStyle.Render("\n  enter: view run  j/k: navigate  pgup/pgdn: page  r: refresh")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func historyHeader() string {
	return fmt.Sprintf("%-10s  %-24s  %-4s  %8s  %6s  %6s  %7s  %6s  %-14s",
		"Date", "Activity", "Spt", "Duration", "TSS", "FSS", "Drift", "VT2", "Analyzed")
}

func historyRow(r store.Run) string {
	date := "-"
	if r.ActivityDate != nil {
		date = r.ActivityDate.Format("2006-01-02")
	}
	return fmt.Sprintf("%-10s  %-24s  %-4s  %8s  %6s  %6s  %7s  %6s  %-14s",
		date,
		truncateName(r.SourceName, 24),
		r.Sport,
		formatSeconds(r.DurationH*3600),
		formatPtr(r.TSS, "%.0f"),
		formatPtr(r.FSS, "%.0f"),
		formatPtr(r.DriftPct, "%+.1f%%"),
		formatPtr(r.VT2PowerW, "%.0fW"),
		humanize.Time(r.CreatedAt),
	)
}

// RenderHistoryTable renders runs as a plain table for non-interactive output
func RenderHistoryTable(page *service.HistoryPage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s  %s\n", "ID", historyHeader())
	for _, r := range page.Runs {
		fmt.Fprintf(&b, "%-36s  %s\n", r.ID, historyRow(r))
	}
	fmt.Fprintf(&b, "\n%d of %d runs", len(page.Runs), page.Total)
	if len(page.Trend) > 0 {
		f := page.Fitness
		fmt.Fprintf(&b, "  •  CTL %.0f  ATL %.0f  TSB %.0f (%s)", f.CTL, f.ATL, f.TSB, page.FormDescription)
	}
	b.WriteString("\n")
	return b.String()
}
