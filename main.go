package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/prometheus/common/version"
)

const (
	noticeDuration       = 3 * time.Second
	panelGap             = 2
	minTablePanelWidth   = 30
	minDetailsPanelWidth = 20
	maxDetailsPanelWidth = 50
)

// KeyMap defines the keybindings
type KeyMap struct {
	Quit          key.Binding
	Back          key.Binding
	Up            key.Binding
	Down          key.Binding
	Open          key.Binding
	ToggleRefresh key.Binding
	Refresh       key.Binding
	StatusFilter  key.Binding
	Window        key.Binding
	Efficiency    key.Binding
	Copy          key.Binding
	ToggleHelp    key.Binding
}

var keys = KeyMap{
	Quit:          key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("^c", "quit")),
	Back:          key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "back/quit")),
	Up:            key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:          key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Open:          key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("l/ent", "logs")),
	ToggleRefresh: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "auto refresh")),
	Refresh:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	StatusFilter:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status filter")),
	Window:        key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "time window")),
	Efficiency:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "efficiency")),
	Copy:          key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
	ToggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back, k.Open, k.StatusFilter, k.Window, k.Efficiency, k.ToggleRefresh, k.ToggleHelp}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Copy},
		{k.StatusFilter, k.Window, k.Efficiency},
		{k.ToggleRefresh, k.Refresh, k.ToggleHelp, k.Back, k.Quit},
	}
}

// logListKeys is the help shown on the log file list.
type logListKeys struct{}

func (logListKeys) ShortHelp() []key.Binding {
	return []key.Binding{keys.Back, keys.Up, keys.Down, withHelp(keys.Open, "l/ent", "open"), withHelp(keys.Copy, "y", "copy path")}
}

func (l logListKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{l.ShortHelp()}
}

func withHelp(b key.Binding, k, desc string) key.Binding {
	b.SetHelp(k, desc)
	return b
}

type tickMsg time.Time
type noticeMsg string
type noticeExpiredMsg struct{}

type jobsMsg struct {
	seq   int
	table Table
	err   error
}

type logsFoundMsg struct {
	job   JobRecord
	paths []string
	err   error
}

type logLoadedMsg struct {
	path string
	text string
	err  error
}

// Model is the main application model
type Model struct {
	ctx      context.Context
	nav      *Navigator
	engine   *QueryEngine
	runner   Runner
	settings Settings
	logger   *slog.Logger

	table        table.Model
	logTable     table.Model
	detailsTable table.Model
	viewer       ViewerModel
	spinner      spinner.Model
	help         help.Model

	columns    []jobColumn
	efficiency bool

	fetchSeq    int
	loadingJobs bool
	busy        string
	lastRefresh time.Time
	err         error

	width  int
	height int

	tablePanelHeight    int
	detailsPanelHeight  int
	detailsContentWidth int
	tableBlockWidth     int
	detailsBlockWidth   int
	stackPanels         bool
	hideDetails         bool

	notice       string
	noticeExpiry time.Time
}

func newStyledTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = tableHeaderStyle
	s.Selected = tableSelectedStyle
	t.SetStyles(s)
	return t
}

func NewModel(ctx context.Context, settings Settings, runner Runner, engine *QueryEngine, logger *slog.Logger) Model {
	dt := newStyledTable([]table.Column{
		{Title: "Key", Width: 20},
		{Title: "Value", Width: 30},
	})
	dt.Blur()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = spinnerStyle

	m := Model{
		ctx:      ctx,
		nav:      NewNavigator(QueryState{Refresh: settings.Refresh, Window: settings.Window, Filter: settings.Filter}),
		engine:   engine,
		runner:   runner,
		settings: settings,
		logger:   logger,

		table:        newStyledTable(nil),
		logTable:     newStyledTable([]table.Column{{Title: "Log file", Width: 40}}),
		detailsTable: dt,
		spinner:      sp,
		help:         help.New(),
		efficiency:   settings.Efficiency,

		// Init issues the first fetch.
		fetchSeq:    1,
		loadingJobs: true,
	}

	width, height := detectTerminalSize()
	m.applyWindowSize(width, height)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchJobsCmd(m.fetchSeq),
		m.tickCmd(),
		m.spinner.Tick,
		initialWindowSizeCmd(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Some terminals briefly report zero dimensions; keep the last size.
		width, height := msg.Width, msg.Height
		if width <= 0 {
			width = m.width
		}
		if height <= 0 {
			height = m.height
		}
		m.applyWindowSize(width, height)
		if _, ok := m.nav.Current().(*EditorState); ok {
			m.viewer, cmd = m.viewer.Update(tea.WindowSizeMsg{Width: width, Height: height - m.headerHeight()})
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tickMsg:
		cmds = append(cmds, m.tickCmd())
		if m.shouldPoll() {
			cmds = append(cmds, m.startFetch())
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case jobsMsg:
		if msg.seq != m.fetchSeq {
			// superseded by a later query
			return m, nil
		}
		m.loadingJobs = false
		if msg.err != nil {
			m.err = msg.err
			m.logger.Error("refresh failed", "err", msg.err)
			return m, nil
		}
		m.err = nil
		m.lastRefresh = time.Now()
		if m.nav.LoadJobs(msg.table) {
			// legend titles follow the fetched header
			m.applyWindowSize(m.width, m.height)
		}
		return m, nil

	case logsFoundMsg:
		m.busy = ""
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if !m.nav.OpenLogFiles(msg.job, msg.paths) {
			return m, m.setNotice(fmt.Sprintf("No log files found for job %s", msg.job.JobID))
		}
		m.rebuildLogTable()
		m.applyWindowSize(m.width, m.height)
		return m, nil

	case logLoadedMsg:
		m.busy = ""
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if m.nav.OpenEditor(msg.path, msg.text) {
			pager := m.settings.Mode != ModeSSH
			m.viewer = NewViewerModel(msg.path, msg.text, m.width, m.height-m.headerHeight(), pager)
		}
		return m, nil

	case viewerClosedMsg:
		m.nav.Back()
		m.applyWindowSize(m.width, m.height)
		return m, nil

	case noticeMsg:
		return m, m.setNotice(string(msg))

	case noticeExpiredMsg:
		if m.notice != "" && !time.Now().Before(m.noticeExpiry) {
			m.notice = ""
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		switch cur := m.nav.Current().(type) {
		case *EditorState:
			m.viewer, cmd = m.viewer.Update(msg)
			return m, cmd
		case *LogFilesState:
			cmd = m.updateLogFiles(msg, cur)
		default:
			cmd = m.updateJobList(msg)
		}
		cmds = append(cmds, cmd)
		if m.nav.TakeDirty() {
			cmds = append(cmds, m.startFetch())
		}
		return m, tea.Batch(cmds...)
	}

	if _, ok := m.nav.Current().(*EditorState); ok {
		m.viewer, cmd = m.viewer.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// shouldPoll reports whether a tick should re-query: auto refresh is on and
// the job list is showing, or nothing has been loaded yet.
func (m Model) shouldPoll() bool {
	if m.loadingJobs {
		return false
	}
	switch m.nav.Current().(type) {
	case EmptyState:
		return true
	case *JobListState:
		return m.nav.Query().Refresh
	default:
		return false
	}
}

func (m *Model) startFetch() tea.Cmd {
	m.fetchSeq++
	m.loadingJobs = true
	return m.fetchJobsCmd(m.fetchSeq)
}

func (m *Model) move(delta int) {
	if err := m.nav.Offset(delta); err != nil {
		m.logger.Error("navigation invariant violated", "err", err)
		m.err = err
		return
	}
	m.syncCursors()
}

// canMove reports whether the current list has a highlight to move.
func (m Model) canMove() bool {
	switch cur := m.nav.Current().(type) {
	case *JobListState:
		return cur.Highlight >= jobListSkipLines && cur.Highlight < cur.Rows()
	case *LogFilesState:
		return len(cur.Paths) > 0
	default:
		return false
	}
}

func (m *Model) updateJobList(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Back):
		if !m.nav.Back() {
			return tea.Quit
		}
	case key.Matches(msg, keys.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		m.applyWindowSize(m.width, m.height)
	case key.Matches(msg, keys.Up):
		if m.canMove() {
			m.move(-1)
		}
	case key.Matches(msg, keys.Down):
		if m.canMove() {
			m.move(1)
		}
	case key.Matches(msg, keys.Open):
		jl, ok := m.nav.Current().(*JobListState)
		if !ok || m.busy != "" {
			return nil
		}
		job, ok := jl.Selected()
		if !ok {
			return nil
		}
		m.busy = "Finding logs for " + job.JobID
		return m.findLogsCmd(job)
	case key.Matches(msg, keys.ToggleRefresh):
		qs := m.nav.Query()
		qs.Refresh = !qs.Refresh
		m.nav.SetQuery(qs)
		if qs.Refresh {
			return m.setNotice("Auto refresh on")
		}
		return m.setNotice("Auto refresh paused")
	case key.Matches(msg, keys.Refresh):
		return m.startFetch()
	case key.Matches(msg, keys.StatusFilter):
		qs := m.nav.Query()
		qs.Filter = qs.Filter.next()
		m.nav.SetQuery(qs)
	case key.Matches(msg, keys.Window):
		qs := m.nav.Query()
		qs.Window = qs.Window.next()
		m.nav.SetQuery(qs)
	case key.Matches(msg, keys.Efficiency):
		m.efficiency = !m.efficiency
		m.applyWindowSize(m.width, m.height)
	case key.Matches(msg, keys.Copy):
		jl, ok := m.nav.Current().(*JobListState)
		if !ok {
			return nil
		}
		if job, ok := jl.Selected(); ok {
			return tea.Batch(osc52CopyCmd(job.JobID), m.setNotice("Copied "+job.JobID))
		}
	}
	return nil
}

func (m *Model) updateLogFiles(msg tea.KeyMsg, cur *LogFilesState) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Back):
		m.nav.Back()
		m.applyWindowSize(m.width, m.height)
	case key.Matches(msg, keys.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		m.applyWindowSize(m.width, m.height)
	case key.Matches(msg, keys.Up):
		if m.canMove() {
			m.move(-1)
		}
	case key.Matches(msg, keys.Down):
		if m.canMove() {
			m.move(1)
		}
	case key.Matches(msg, keys.Open):
		path, ok := cur.Selected()
		if !ok || m.busy != "" {
			return nil
		}
		m.busy = "Reading " + path
		return m.loadLogCmd(path)
	case key.Matches(msg, keys.Copy):
		if path, ok := cur.Selected(); ok {
			return tea.Batch(osc52CopyCmd(path), m.setNotice("Copied path"))
		}
	}
	return nil
}

func (m *Model) setNotice(text string) tea.Cmd {
	m.notice = text
	m.noticeExpiry = time.Now().Add(noticeDuration)
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return noticeExpiredMsg{}
	})
}

func noticeCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(text)
	}
}

func (m Model) View() string {
	if _, ok := m.nav.Current().(*EditorState); ok {
		view := lipgloss.JoinVertical(lipgloss.Left, m.renderHeaderArea(), m.viewer.View())
		view = clampViewHeight(view, m.height)
		return clampViewWidth(view, m.width)
	}

	header := m.renderHeaderArea()
	var mainView string
	var helpKeys help.KeyMap = keys

	switch cur := m.nav.Current().(type) {
	case *JobListState:
		tablePanel := m.renderTablePanel(cur)
		mainView = tablePanel
		if !m.hideDetails {
			mainView = m.renderMainContent(tablePanel, m.renderDetailsPanel())
		}
	case *LogFilesState:
		mainView = m.renderLogFilesPanel(cur)
		helpKeys = logListKeys{}
	default:
		mainView = m.renderEmptyPanel()
	}

	fullView := lipgloss.JoinVertical(lipgloss.Left, header, mainView, m.help.View(helpKeys))
	fullView = clampViewHeight(fullView, m.height)
	fullView = clampViewWidth(fullView, m.width)
	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, fullView)
}

func (m Model) headerHeight() int {
	return lipgloss.Height(m.renderHeaderArea())
}

func (m Model) renderHeaderArea() string {
	qs := m.nav.Query()
	required := []string{
		metaPillStyle.Render(appName),
		metaMutedPillStyle.Render("Window " + qs.Window.String()),
		metaMutedPillStyle.Render("Status " + qs.Filter.String()),
	}
	if !qs.Refresh {
		required = append(required, pausedPillStyle.Render("Paused"))
	}
	if m.loadingJobs || m.busy != "" {
		label := "Loading"
		if m.busy != "" {
			label = m.busy
		}
		required = append(required, metaMutedPillStyle.Render(m.spinner.View()+" "+shortenText(label, 40)))
	}
	if m.err != nil {
		errText := fmt.Sprintf("Error %s", shortenText(m.err.Error(), 48))
		required = append(required, metaAlertPillStyle.Render(errText))
	}
	if m.notice != "" {
		required = append(required, noticePillStyle.Render(m.notice))
	}

	optional := []string{}
	if _, ok := m.nav.Current().(*EditorState); ok && m.viewer.InSearchMode() {
		optional = append(optional, metaPillStyle.Render("Search"))
	}
	if jl, ok := m.nav.Current().(*JobListState); ok {
		if m.width >= 120 {
			optional = append(optional, joinWithGap(jobStatChips(collectJobStats(jl.Display)), 0))
		} else if m.width >= 90 {
			if compact := jobStatsCompactPill(collectJobStats(jl.Display)); compact != "" {
				optional = append(optional, compact)
			}
		}
	}
	optional = append(optional, metaMutedPillStyle.Render(m.sourceLabel()))
	if !m.lastRefresh.IsZero() {
		optional = append(optional, metaMutedPillStyle.Render("Updated "+m.lastRefresh.Format("15:04:05")))
	}

	// Keep a one-line header by dropping optional items until it fits.
	parts := append([]string{}, required...)
	parts = append(parts, optional...)
	for len(parts) > 1 && lipgloss.Width(joinWithGap(parts, 1)) > m.width {
		parts = parts[:len(parts)-1]
	}

	row := joinWithGap(parts, 1)
	return lipgloss.NewStyle().MaxWidth(m.width).Render(row)
}

func (m Model) sourceLabel() string {
	user := m.settings.User
	if user == "" && m.settings.Mode == ModeLocal {
		user = CurrentUser()
	}
	switch m.settings.Mode {
	case ModeSSH:
		if user != "" {
			return user + "@" + m.settings.SSHHost
		}
		return m.settings.SSHHost
	case ModeFixture:
		return "fixture"
	default:
		return user
	}
}

func jobStatsCompactPill(stats jobStats) string {
	parts := []string{}
	if stats.Running > 0 {
		parts = append(parts, fmt.Sprintf("R%d", stats.Running))
	}
	if stats.Pending > 0 {
		parts = append(parts, fmt.Sprintf("P%d", stats.Pending))
	}
	if stats.Failed > 0 {
		parts = append(parts, fmt.Sprintf("F%d", stats.Failed))
	}
	if stats.Completed > 0 {
		parts = append(parts, fmt.Sprintf("C%d", stats.Completed))
	}
	if stats.Other > 0 {
		parts = append(parts, fmt.Sprintf("O%d", stats.Other))
	}
	if len(parts) == 0 {
		return ""
	}
	return metaMutedPillStyle.Render(strings.Join(parts, " "))
}

func jobStatChips(stats jobStats) []string {
	metrics := []struct {
		short string
		icon  string
		value int
		color lipgloss.TerminalColor
	}{
		{"R", "▶", stats.Running, stateColor(StateRunning)},
		{"P", "…", stats.Pending, stateColor(StatePending)},
		{"C", "✓", stats.Completed, stateColor(StateCompleted)},
		{"F", "!", stats.Failed, stateColor(StateFailed)},
		{"O", "?", stats.Other, theme.Neutral},
	}

	var chips []string
	for _, metric := range metrics {
		if metric.short == "O" && metric.value == 0 {
			continue
		}
		value := summaryValueStyle.Foreground(metric.color).Render(fmt.Sprintf("%s %d", metric.icon, metric.value))
		content := lipgloss.JoinHorizontal(
			lipgloss.Left,
			summaryLabelStyle.Render(metric.short),
			lipgloss.NewStyle().MarginLeft(1).Render(value),
		)
		chips = append(chips, summaryChipStyle.BorderForeground(metric.color).Render(content))
	}
	return chips
}

func (m Model) renderTablePanel(jl *JobListState) string {
	tableStyle := m.tableBoxStyle().BorderForeground(theme.Accent)
	if m.tableBlockWidth > 0 {
		tableStyle = tableStyle.Width(m.tableBlockWidth)
	}

	title := panelTitleStyle.Render(fmt.Sprintf("Jobs (%d)", len(jl.Display)))
	content := m.table.View()
	if len(jl.Display) == 0 {
		content = lipgloss.JoinVertical(lipgloss.Left, content,
			placeholderStyle.Render("No jobs match the current window and status filter."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, tableStyle.Render(content))
}

func (m Model) renderLogFilesPanel(lf *LogFilesState) string {
	title := panelTitleStyle.Render(fmt.Sprintf("Log files for %s (%d)", lf.Job.JobID, len(lf.Paths)))
	style := m.tableBoxStyle().BorderForeground(theme.Accent).Width(m.width - 2)
	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(m.logTable.View()))
}

func (m Model) renderEmptyPanel() string {
	text := "Loading jobs…"
	if !m.lastRefresh.IsZero() {
		text = fmt.Sprintf("No jobs in window %s.", m.nav.Query().Window)
	} else if m.err != nil {
		text = "Could not load jobs. Press r to retry."
	}
	style := m.tableBoxStyle().Width(m.width - 2)
	return style.Render(placeholderStyle.Render(text))
}

func (m Model) renderDetailsPanel() string {
	panelStyle := m.detailsBoxStyle().Width(m.detailsBlockWidth)
	content := m.detailsTable.View()
	if len(m.detailsTable.Rows()) == 0 {
		content = placeholderStyle.Render("Details will appear here once a job is selected.")
	}
	title := panelTitleStyle.Render("Details")
	if jl, ok := m.nav.Current().(*JobListState); ok {
		if job, ok := jl.Selected(); ok {
			title = lipgloss.JoinHorizontal(lipgloss.Top, title, " ", renderStateBadge(job.State))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, panelStyle.Render(content))
}

func (m Model) renderMainContent(tablePanel, detailsPanel string) string {
	if m.stackPanels {
		return lipgloss.JoinVertical(lipgloss.Left, tablePanel, detailsPanel)
	}
	gap := lipgloss.NewStyle().Width(panelGap).Render(" ")
	return lipgloss.JoinHorizontal(lipgloss.Top, tablePanel, gap, detailsPanel)
}

func sanitizeDetailValue(value string) string {
	value = strings.ReplaceAll(value, "\r\n", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	return strings.TrimSpace(value)
}

func trimDetailValueToWidth(value string, width int) string {
	if width <= 0 || lipgloss.Width(value) <= width {
		return value
	}
	if width == 1 {
		return runewidth.Truncate(value, 1, "")
	}
	return runewidth.Truncate(value, width, "…")
}

func clampViewWidth(view string, width int) string {
	if width <= 0 {
		return view
	}
	lines := strings.Split(strings.ReplaceAll(view, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = truncate.String(line, uint(width))
		}
	}
	return strings.Join(lines, "\n")
}

func clampViewHeight(view string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(view, "\r\n", "\n"), "\n")
	if len(lines) <= height {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:height], "\n")
}

func (m *Model) applyWindowSize(width, height int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	m.width = width
	m.height = height
	m.help.Width = width - 2

	headerHeight := lipgloss.Height(m.renderHeaderArea())
	helpHeight := lipgloss.Height(m.help.View(keys))
	availableHeight := height - headerHeight - helpHeight
	if availableHeight < 0 {
		availableHeight = 0
	}

	usable := width - panelGap - 6
	if usable < 1 {
		usable = 1
	}
	m.stackPanels = width < minTablePanelWidth+minDetailsPanelWidth+panelGap
	// Small windows show the job table alone.
	m.hideDetails = m.stackPanels || availableHeight < 14 || width < 100

	var tableBlockWidth, detailsBlockWidth int
	if m.hideDetails {
		tableBlockWidth = width - 2
		m.tablePanelHeight = availableHeight
		m.detailsPanelHeight = 0
	} else {
		detailsBlockWidth = (usable * 35) / 100
		if detailsBlockWidth < minDetailsPanelWidth {
			detailsBlockWidth = minDetailsPanelWidth
		}
		if detailsBlockWidth > maxDetailsPanelWidth {
			detailsBlockWidth = maxDetailsPanelWidth
		}
		tableBlockWidth = usable - detailsBlockWidth
		m.tablePanelHeight = availableHeight
		m.detailsPanelHeight = availableHeight
	}
	if tableBlockWidth < 1 {
		tableBlockWidth = 1
	}
	m.tableBlockWidth = tableBlockWidth
	m.detailsBlockWidth = detailsBlockWidth

	tableFrameX, tableFrameY := m.tableBoxStyle().GetFrameSize()
	detailsFrameX, detailsFrameY := m.detailsBoxStyle().GetFrameSize()

	tableContentWidth := tableBlockWidth - tableFrameX
	if tableContentWidth < 1 {
		tableContentWidth = 1
	}
	m.detailsContentWidth = detailsBlockWidth - detailsFrameX
	if m.detailsContentWidth < 1 {
		m.detailsContentWidth = 1
	}

	// The bubbles table indexes columns by row cell while rendering, so rows
	// must be cleared before the column set shrinks.
	m.table.SetRows([]table.Row{})
	m.columns = responsiveJobColumns(jobColumns(m.efficiency, m.currentHeader()), tableContentWidth)
	m.table.SetColumns(tableColumns(m.columns))
	m.table.SetWidth(tableContentWidth)
	m.table.SetHeight(maxInt(m.tablePanelHeight-1-tableFrameY, 1))
	m.rebuildJobTable()

	logWidth := width - 2 - tableFrameX
	if logWidth < 10 {
		logWidth = 10
	}
	m.logTable.SetColumns([]table.Column{{Title: "Log file", Width: logWidth - 2}})
	m.logTable.SetWidth(logWidth)
	m.logTable.SetHeight(maxInt(availableHeight-1-tableFrameY, 1))
	m.rebuildLogTable()

	keyWidth := (m.detailsContentWidth * 30) / 100
	if keyWidth < 8 {
		keyWidth = 8
	}
	valWidth := m.detailsContentWidth - keyWidth - 1
	if valWidth < 1 {
		valWidth = 1
	}
	m.detailsTable.SetRows([]table.Row{})
	m.detailsTable.SetColumns([]table.Column{
		{Title: "Key", Width: keyWidth},
		{Title: "Value", Width: valWidth},
	})
	m.detailsTable.SetWidth(m.detailsContentWidth)
	m.detailsTable.SetHeight(maxInt(m.detailsPanelHeight-1-detailsFrameY, 1))
	m.updateDetailsTable()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (m Model) panelPadding() (padY, padX int) {
	if m.width < 90 || m.height < 26 || m.stackPanels {
		return 0, 1
	}
	return 0, 2
}

func (m Model) tableBoxStyle() lipgloss.Style {
	padY, padX := m.panelPadding()
	return listStyle.Padding(padY, padX)
}

func (m Model) detailsBoxStyle() lipgloss.Style {
	padY, padX := m.panelPadding()
	return detailsStyle.Padding(padY, padX)
}

func (m Model) currentHeader() Header {
	if jl, ok := m.nav.Current().(*JobListState); ok && len(jl.Table.Header.Names) > 0 {
		return jl.Table.Header
	}
	return canonicalHeader()
}

func joinWithGap(parts []string, gap int) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	if len(filtered) == 0 {
		return ""
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	if gap <= 0 {
		return lipgloss.JoinHorizontal(lipgloss.Left, filtered...)
	}
	spacer := lipgloss.NewStyle().Width(gap).Render(" ")
	row := filtered[0]
	for _, part := range filtered[1:] {
		row = lipgloss.JoinHorizontal(lipgloss.Left, row, spacer, part)
	}
	return row
}

func renderStateBadge(state JobState) string {
	caption := state.String()
	if code := state.Code(); code != "" && code != caption {
		caption = fmt.Sprintf("%s (%s)", caption, code)
	}
	if caption == "" {
		caption = "UNKNOWN"
	}
	return statusBadgeStyle.
		Background(stateColor(state.Kind)).
		Render(caption)
}

func shortenText(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// --- Helpers ---

func (m *Model) rebuildJobTable() {
	jl, ok := m.nav.Current().(*JobListState)
	if !ok {
		m.table.SetRows([]table.Row{})
		return
	}
	if len(m.columns) == 0 {
		return
	}
	rows := make([]table.Row, 0, len(jl.Display))
	for _, r := range jl.Display {
		row := make(table.Row, len(m.columns))
		for i, c := range m.columns {
			row[i] = sanitizeDetailValue(c.cell(r))
		}
		rows = append(rows, row)
	}
	m.table.SetRows(rows)
	m.syncCursors()
}

func (m *Model) rebuildLogTable() {
	lf, ok := m.nav.Current().(*LogFilesState)
	if !ok {
		return
	}
	rows := make([]table.Row, 0, len(lf.Paths))
	for _, p := range lf.Paths {
		rows = append(rows, table.Row{p})
	}
	m.logTable.SetRows(rows)
	m.syncCursors()
}

// syncCursors mirrors the navigator's highlight into the tables. Row 0 of
// the job list is the table header, so the cursor is one less.
func (m *Model) syncCursors() {
	switch cur := m.nav.Current().(type) {
	case *JobListState:
		if cur.Highlight >= jobListSkipLines {
			m.table.SetCursor(cur.Highlight - jobListSkipLines)
		}
		m.updateDetailsTable()
	case *LogFilesState:
		if cur.Highlight >= 0 {
			m.logTable.SetCursor(cur.Highlight)
		}
	}
}

func (m *Model) updateDetailsTable() {
	jl, ok := m.nav.Current().(*JobListState)
	if !ok {
		return
	}
	job, ok := jl.Selected()
	if !ok {
		m.detailsTable.SetRows([]table.Row{})
		return
	}
	width := m.detailsTable.Columns()[1].Width
	rows := make([]table.Row, 0, 20)
	for _, kv := range jobDetails(job) {
		rows = append(rows, table.Row{kv[0], trimDetailValueToWidth(sanitizeDetailValue(kv[1]), width)})
	}
	m.detailsTable.SetRows(rows)
}

// --- Commands ---

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.settings.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func initialWindowSizeCmd() tea.Cmd {
	return func() tea.Msg {
		width, height := detectTerminalSize()
		return tea.WindowSizeMsg{Width: width, Height: height}
	}
}

func detectTerminalSize() (int, int) {
	width, height, err := term.GetSize(os.Stdout.Fd())
	if err != nil || width <= 0 || height <= 0 {
		return 80, 24
	}
	return width, height
}

func (m Model) fetchJobsCmd(seq int) tea.Cmd {
	qs := m.nav.Query()
	engine, ctx := m.engine, m.ctx
	return func() tea.Msg {
		t, err := engine.Fetch(ctx, qs)
		return jobsMsg{seq: seq, table: t, err: err}
	}
}

func (m Model) findLogsCmd(job JobRecord) tea.Cmd {
	runner, logger, ctx, archive := m.runner, m.logger, m.ctx, m.settings.LogArchiveDir
	return func() tea.Msg {
		paths, err := FindLogs(ctx, runner, logger, job, archive)
		return logsFoundMsg{job: job, paths: paths, err: err}
	}
}

func (m Model) loadLogCmd(path string) tea.Cmd {
	runner, ctx := m.runner, m.ctx
	return func() tea.Msg {
		text, err := ReadLog(ctx, runner, path)
		if errors.Is(err, ErrInvalidUTF8) {
			err = fmt.Errorf("%s: %w", path, err)
		}
		return logLoadedMsg{path: path, text: text, err: err}
	}
}

func main() {
	settings, err := LoadConfig(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintf(os.Stderr, "Try '%s --help' for more information.\n", appName)
		os.Exit(2)
	}

	logger, logClose, err := NewLogger(settings.Log.Output, settings.Log.Format, settings.Log.File, settings.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to create logger: %v\n", err)
		os.Exit(1)
	}
	useTheme(settings.Theme)

	runner := &CommandRunner{
		Mode:        settings.Mode,
		SSHHost:     settings.SSHHost,
		FixturePath: settings.Fixture,
		Timeout:     settings.CommandTimeout,
		Logger:      logger,
	}
	engine := NewQueryEngine(runner, settings.User, settings.MaxRows, logger)

	ctx, cancel := context.WithCancel(context.Background())
	logger.Info("session started", "version", version.Version, "mode", settings.Mode,
		"window", settings.Window.String(), "status", settings.Filter.String())

	p := tea.NewProgram(NewModel(ctx, settings, runner, engine, logger), tea.WithAltScreen())
	_, err = p.Run()
	cancel()
	if err != nil {
		logger.Error("session ended with error", "err", err)
		logClose()
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
	logClose()
}
