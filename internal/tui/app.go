package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trainload/internal/service"
)

// Screen identifiers
type Screen int

const (
	ScreenHistory Screen = iota
	ScreenTrend
	ScreenRunDetail
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	history   HistoryModel
	trend     TrendModel
	runDetail RunDetailModel
	help      HelpModel

	svc *service.AnalysisService

	// Window dimensions
	width  int
	height int
}

// NewApp creates a new App browsing the history of svc
func NewApp(svc *service.AnalysisService) *App {
	return &App{
		screen:  ScreenHistory,
		svc:     svc,
		history: NewHistoryModel(svc),
		trend:   NewTrendModel(svc),
		help:    NewHelpModel(),
	}
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return a.history.Init()
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "1":
			a.screen = ScreenHistory
			return a, a.history.Init()
		case "2":
			a.screen = ScreenTrend
			a.trend = NewTrendModel(a.svc)
			return a, a.trend.Init()
		case "?":
			a.prevScreen = a.screen
			a.screen = ScreenHelp
			return a, nil
		case "esc":
			switch a.screen {
			case ScreenHelp:
				a.screen = a.prevScreen
				return a, nil
			case ScreenRunDetail:
				a.screen = ScreenHistory
				return a, nil
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case OpenRunMsg:
		a.screen = ScreenRunDetail
		a.runDetail = NewRunDetailModel(a.svc, msg.RunID, a.width, a.height)
		return a, a.runDetail.Init()
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenHistory:
		var m tea.Model
		m, cmd = a.history.Update(msg)
		a.history = m.(HistoryModel)
	case ScreenTrend:
		var m tea.Model
		m, cmd = a.trend.Update(msg)
		a.trend = m.(TrendModel)
	case ScreenRunDetail:
		var m tea.Model
		m, cmd = a.runDetail.Update(msg)
		a.runDetail = m.(RunDetailModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

// View renders the app
func (a *App) View() string {
	header := headerStyle.Render("trainload - training load history")
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenHistory:
		content = a.history.View()
	case ScreenTrend:
		content = a.trend.View()
	case ScreenRunDetail:
		content = a.runDetail.View()
	case ScreenHelp:
		content = a.help.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content)
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "History", ScreenHistory},
		{"2", "Trend", ScreenTrend},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		active := a.screen == item.screen || (item.screen == ScreenHistory && a.screen == ScreenRunDetail)
		if active {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}
