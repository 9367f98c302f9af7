package main

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// MaxViewerLines caps the lines kept from a log file. The end of a log is
// what matters, so the oldest lines are dropped.
const MaxViewerLines = 20000

// ViewerKeyMap defines keybindings for the log viewer
type ViewerKeyMap struct {
	Quit       key.Binding
	Bottom     key.Binding
	Top        key.Binding
	Search     key.Binding
	FindNext   key.Binding
	FindPrev   key.Binding
	CopyAll    key.Binding
	ViewPager  key.Binding
	ToggleHelp key.Binding
}

func (k ViewerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Search, k.FindNext, k.FindPrev, k.Top, k.Bottom, k.CopyAll, k.ToggleHelp}
}

func (k ViewerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Top, k.Bottom, k.Search, k.FindNext, k.FindPrev},
		{k.CopyAll, k.ViewPager, k.ToggleHelp, k.Quit},
	}
}

var viewerKeys = ViewerKeyMap{
	Quit:       key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q/esc", "back")),
	Bottom:     key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Top:        key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	FindNext:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next match")),
	FindPrev:   key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "prev match")),
	CopyAll:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy file")),
	ViewPager:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "open in pager")),
	ToggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
}

type viewerClosedMsg struct{}

// ViewerModel shows one log file
type ViewerModel struct {
	path    string
	lines   []string
	dropped int
	// wrapped holds visual lines after wrapping to the viewport width.
	wrapped []string

	view         viewport.Model
	searchInput  textinput.Model
	inSearchMode bool
	lastSearch   string
	pagerAllowed bool
	showHelp     bool
	help         help.Model

	width  int
	height int
}

const searchOverlayHeight = 4

// NewViewerModel loads text for display. pagerAllowed is false when the
// file lives on a remote host.
func NewViewerModel(path, text string, width, height int, pagerAllowed bool) ViewerModel {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	dropped := 0
	if len(lines) > MaxViewerLines {
		dropped = len(lines) - MaxViewerLines
		lines = lines[dropped:]
	}
	for i, line := range lines {
		lines[i] = cleanLogLine(line)
	}

	ti := textinput.New()
	ti.Placeholder = "search"
	ti.Prompt = ""
	ti.CharLimit = 256

	m := ViewerModel{
		path:         path,
		lines:        lines,
		dropped:      dropped,
		view:         viewport.New(width, height),
		searchInput:  ti,
		pagerAllowed: pagerAllowed,
		help:         help.New(),
		width:        width,
		height:       height,
	}
	m.recalculateLayout()
	return m
}

func (m ViewerModel) InSearchMode() bool {
	return m.inSearchMode
}

func (m *ViewerModel) recalculateLayout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	// title, border and help line
	vpHeight := m.height - 5
	if m.inSearchMode {
		vpHeight -= searchOverlayHeight
	}
	if vpHeight < 3 {
		vpHeight = 3
	}
	vpWidth := m.width - 4
	if vpWidth < 10 {
		vpWidth = 10
	}
	m.view.Width = vpWidth
	m.view.Height = vpHeight
	m.refreshContent()

	searchWidth := m.width - 10
	if searchWidth < 20 {
		searchWidth = 20
	}
	m.searchInput.Width = searchWidth
}

var ansiCursorRegexp = regexp.MustCompile(`\x1b\[[0-9;]*[A-KSTf]`)

// cleanLogLine strips cursor movement codes and keeps only what follows the
// last carriage return, as a terminal would show it.
func cleanLogLine(line string) string {
	line = ansiCursorRegexp.ReplaceAllString(line, "")

	line = strings.TrimRight(line, "\r")
	if idx := strings.LastIndex(line, "\r"); idx != -1 {
		return line[idx+1:]
	}
	return line
}

func wrapLine(line string, width int) string {
	if line == "" || width <= 0 {
		return line
	}
	return wordwrap.String(line, width)
}

func (m *ViewerModel) activeSearchTerm() string {
	if m.inSearchMode {
		if val := strings.TrimSpace(m.searchInput.Value()); val != "" {
			return val
		}
	}
	return m.lastSearch
}

func (m *ViewerModel) refreshContent() {
	m.wrapped = m.wrapped[:0]
	for _, line := range m.lines {
		m.wrapped = append(m.wrapped, strings.Split(wrapLine(line, m.view.Width), "\n")...)
	}
	needle := strings.ToLower(m.activeSearchTerm())
	var b strings.Builder
	for i, line := range m.wrapped {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(highlightMatches(line, needle))
	}
	m.view.SetContent(b.String())
}

func highlightMatches(line, needle string) string {
	if needle == "" || strings.TrimSpace(line) == "" {
		return line
	}

	lowerLine := strings.ToLower(line)
	if len(lowerLine) != len(line) {
		// Case folding changed byte offsets; matching would misalign.
		return line
	}
	var b strings.Builder
	i := 0

	for i < len(line) {
		idx := strings.Index(lowerLine[i:], needle)
		if idx == -1 {
			b.WriteString(line[i:])
			break
		}
		start := i + idx
		end := start + len(needle)
		b.WriteString(line[i:start])
		b.WriteString(searchHighlightStyle.Render(line[start:end]))
		i = end
	}
	return b.String()
}

// performSearch scrolls to the next visual line containing query, wrapping
// around at either end. It reports whether a match was found.
func (m *ViewerModel) performSearch(query string, forward bool) bool {
	if query == "" || len(m.wrapped) == 0 {
		return false
	}
	query = strings.ToLower(query)
	lines := m.wrapped
	n := len(lines)

	start := m.view.YOffset
	for step := 1; step <= n; step++ {
		i := start + step
		if !forward {
			i = start - step
		}
		i = ((i % n) + n) % n
		if strings.Contains(strings.ToLower(lines[i]), query) {
			m.view.SetYOffset(i)
			return true
		}
	}
	return false
}

func (m *ViewerModel) openInPagerCmd() tea.Cmd {
	if m.path == "" {
		return nil
	}

	pager := os.Getenv("PAGER")
	var cmd *exec.Cmd

	if fields := strings.Fields(pager); len(fields) > 0 {
		args := append(fields[1:], m.path)
		cmd = exec.Command(fields[0], args...)
	}
	if cmd == nil {
		cmd = exec.Command("vim", "-R", m.path)
	}

	return tea.ExecProcess(cmd, nil)
}

func (m ViewerModel) Update(msg tea.Msg) (ViewerModel, tea.Cmd) {
	var cmd tea.Cmd

	if m.inSearchMode {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "enter":
				m.inSearchMode = false
				m.lastSearch = strings.TrimSpace(m.searchInput.Value())
				m.searchInput.Blur()
				m.recalculateLayout()
				if m.lastSearch != "" && !m.performSearch(m.lastSearch, true) {
					return m, noticeCmd(fmt.Sprintf("no match for %q", m.lastSearch))
				}
				return m, nil
			case "esc":
				m.inSearchMode = false
				m.searchInput.Blur()
				m.recalculateLayout()
				return m, nil
			}
		}
		m.searchInput, cmd = m.searchInput.Update(msg)
		m.refreshContent()
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.recalculateLayout()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, viewerKeys.Quit):
			return m, func() tea.Msg { return viewerClosedMsg{} }
		case key.Matches(msg, viewerKeys.Top):
			m.view.GotoTop()
			return m, nil
		case key.Matches(msg, viewerKeys.Bottom):
			m.view.GotoBottom()
			return m, nil
		case key.Matches(msg, viewerKeys.Search):
			m.inSearchMode = true
			m.searchInput.SetValue("")
			m.recalculateLayout()
			cmd = m.searchInput.Focus()
			return m, cmd
		case key.Matches(msg, viewerKeys.FindNext), key.Matches(msg, viewerKeys.FindPrev):
			if m.lastSearch == "" {
				return m, nil
			}
			if !m.performSearch(m.lastSearch, key.Matches(msg, viewerKeys.FindNext)) {
				return m, noticeCmd(fmt.Sprintf("no match for %q", m.lastSearch))
			}
			return m, nil
		case key.Matches(msg, viewerKeys.CopyAll):
			if len(m.lines) == 0 {
				return m, nil
			}
			return m, tea.Batch(
				osc52CopyCmd(strings.Join(m.lines, "\n")),
				noticeCmd(fmt.Sprintf("copied %d lines", len(m.lines))),
			)
		case key.Matches(msg, viewerKeys.ViewPager):
			if !m.pagerAllowed {
				return m, noticeCmd("pager needs a local file")
			}
			return m, m.openInPagerCmd()
		case key.Matches(msg, viewerKeys.ToggleHelp):
			m.showHelp = !m.showHelp
			return m, nil
		}
	}

	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m ViewerModel) View() string {
	scroll := fmt.Sprintf("%.0f%%", m.view.ScrollPercent()*100)
	if m.view.AtTop() {
		scroll = "Top"
	} else if m.view.AtBottom() {
		scroll = "Bot"
	}
	status := fmt.Sprintf(" (%s, %d lines)", scroll, len(m.lines))
	if m.dropped > 0 {
		status = fmt.Sprintf(" (%s, last %d lines)", scroll, len(m.lines))
	}

	// Truncate the path from the start so the file name stays visible.
	displayPath := m.path
	available := m.view.Width - lipgloss.Width(status)
	if available < 3 {
		displayPath = ""
	} else if lipgloss.Width(displayPath) > available {
		r := []rune(displayPath)
		if trim := len(r) - available + 1; trim > 0 && trim < len(r) {
			displayPath = "…" + string(r[trim:])
		}
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		viewerTitleStyle.Render(displayPath+status),
		viewerBorderStyle.Render(m.view.View()),
	)

	helpView := m.help.ShortHelpView(viewerKeys.ShortHelp())
	if m.showHelp {
		helpView = m.help.FullHelpView(viewerKeys.FullHelp())
	}
	body = lipgloss.JoinVertical(lipgloss.Left, body, helpView)

	if m.inSearchMode {
		return m.renderSearchOverlay(body)
	}
	return body
}

func (m ViewerModel) renderSearchOverlay(content string) string {
	displayValue := strings.TrimSpace(m.searchInput.Value())
	if displayValue == "" {
		displayValue = "(type to search)"
	}
	if m.searchInput.Focused() {
		displayValue += " ▍"
	}

	builder := &strings.Builder{}
	builder.WriteString("\n/ Search: ")
	builder.WriteString(displayValue)
	builder.WriteString("\n")
	builder.WriteString("Press Enter to jump, Esc to cancel")
	builder.WriteString("\n\n")
	builder.WriteString(content)

	return builder.String()
}

func osc52CopyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		seq := osc52.New(text).Limit(100 * 1024)

		term := strings.ToLower(os.Getenv("TERM"))
		if tmux := os.Getenv("TMUX"); tmux != "" || strings.HasPrefix(term, "tmux") {
			seq = seq.Tmux()
		} else if strings.HasPrefix(term, "screen") {
			seq = seq.Screen()
		}

		_, _ = seq.WriteTo(os.Stdout)
		return nil
	}
}
