package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/pathtrack/pkg/tracker"
)

const (
	headerHeight = 3 // title + status line + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

const (
	angularSeries = "angular"
	linearSeries  = "linear"
)

// Series colors
var seriesColors = map[string]string{
	angularSeries: "208", // orange
	linearSeries:  "51",  // cyan
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// runResult is filled in by the control loop goroutine. done is closed once
// sum and err are set.
type runResult struct {
	done chan struct{}
	sum  tracker.Summary
	err  error
}

type trackModel struct {
	ctrl     *tracker.Controller
	result   *runResult
	cancel   context.CancelFunc
	mode     string
	chart    *streamlinechart.Model
	width    int // terminal width
	height   int // terminal height
	logs     []string
	last     tracker.State
	finished bool
	quitting bool
}

func (m *trackModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg tracker.State
type logMsg string
type doneMsg struct{}

func waitForState(ctrl *tracker.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *tracker.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

func waitForDone(res *runResult) tea.Cmd {
	return func() tea.Msg {
		<-res.done
		return doneMsg{}
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *trackModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *trackModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func newTrackModel(ctrl *tracker.Controller, res *runResult, cancel context.CancelFunc, mode string) trackModel {
	// Angular commands of pure pursuit can be large close to a goal; the
	// chart clips them.
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-3, 3),
	)
	for _, name := range []string{angularSeries, linearSeries} {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return trackModel{
		ctrl:   ctrl,
		result: res,
		cancel: cancel,
		mode:   mode,
		chart:  &chart,
	}
}

func (m trackModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
		waitForDone(m.result),
	)
}

func (m trackModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		state := tracker.State(msg)
		if state.Error == nil && !state.Timestamp.IsZero() {
			m.chart.PushDataSet(angularSeries, state.Command.Angular)
			m.chart.PushDataSet(linearSeries, state.Command.Linear)
			m.chart.DrawAll()
		}
		m.last = state
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)

	case doneMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}

func (m trackModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("pathtrack"))
	sb.WriteString(" - " + m.mode)
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.statusLine())
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4)

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m trackModel) statusLine() string {
	switch {
	case m.finished && m.result.err != nil:
		return errorStyle.Render("Stopped: " + m.result.err.Error() + " (press 'q' to exit)")
	case m.finished:
		return successStyle.Render(fmt.Sprintf("Path complete in %s (press 'q' to exit)", m.result.sum.Duration.Round(time.Millisecond)))
	case m.last.Timestamp.IsZero():
		return statusStyle.Render("Waiting for the first pose...")
	}
	s := m.last
	return statusStyle.Render(fmt.Sprintf("pos (%.2f, %.2f)  heading %+.2f rad  goal (%.2f, %.2f)  look-ahead %.2f m  %d waypoints left",
		s.Position.X, s.Position.Y, s.Heading, s.Goal.X, s.Goal.Y, s.LookAhead, s.Remaining))
}

func renderLegend() string {
	var items []string
	for _, name := range []string{angularSeries, linearSeries} {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

// runWithTUI runs the controller in the background while the terminal UI
// shows its commands. Quitting the UI cancels the run.
func runWithTUI(ctx context.Context, ctrl *tracker.Controller, mode string) (tracker.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	res := &runResult{done: make(chan struct{})}
	go func() {
		res.sum, res.err = ctrl.Run(ctx)
		close(res.done)
	}()

	p := tea.NewProgram(newTrackModel(ctrl, res, cancel, mode), tea.WithAltScreen())
	_, tuiErr := p.Run()

	cancel()
	<-res.done
	if tuiErr != nil {
		return res.sum, multierr.Append(res.err, errors.Wrap(tuiErr, "run terminal UI"))
	}
	return res.sum, res.err
}
