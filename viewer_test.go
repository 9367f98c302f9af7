package main

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func numberedText(n int, mark int, markText string) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i == mark {
			fmt.Fprintf(&b, "line %d %s\n", i, markText)
			continue
		}
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func TestViewerKeepsTailOfLargeFiles(t *testing.T) {
	m := NewViewerModel("/logs/big.out", numberedText(MaxViewerLines+5, -1, ""), 80, 30, true)
	if len(m.lines) != MaxViewerLines || m.dropped != 5 {
		t.Fatalf("kept %d lines, dropped %d", len(m.lines), m.dropped)
	}
	if m.lines[0] != "line 5" {
		t.Fatalf("oldest kept line = %q, want line 5", m.lines[0])
	}
}

func TestCleanLogLine(t *testing.T) {
	tests := map[string]string{
		"plain":                          "plain",
		"progress 10%\rprogress 50%\r":   "progress 50%",
		"\x1b[2Kdone":                    "done",
		"\x1b[31mred\x1b[0m stays":       "\x1b[31mred\x1b[0m stays",
		"epoch 1\x1b[1A\x1b[2Kepoch 2\r": "epoch 1epoch 2",
	}
	for in, want := range tests {
		if got := cleanLogLine(in); got != want {
			t.Errorf("cleanLogLine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestViewerSearchJumpsToMatch(t *testing.T) {
	m := NewViewerModel("/logs/job.out", numberedText(200, 150, "needle"), 80, 30, true)

	m, _ = m.Update(keyRunes("/"))
	if !m.InSearchMode() {
		t.Fatal("expected search mode after '/'")
	}
	m, _ = m.Update(keyRunes("needle"))
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatalf("a found match should not produce a notice, got %v", cmd())
	}
	if m.InSearchMode() {
		t.Fatal("enter should leave search mode")
	}
	if m.view.YOffset != 150 {
		t.Fatalf("expected to scroll to line 150, got YOffset=%d", m.view.YOffset)
	}

	m.view.GotoTop()
	m, _ = m.Update(keyRunes("n"))
	if m.view.YOffset != 150 {
		t.Fatalf("'n' should find the match again, got YOffset=%d", m.view.YOffset)
	}
}

func TestViewerSearchMissReportsNotice(t *testing.T) {
	m := NewViewerModel("/logs/job.out", numberedText(20, -1, ""), 80, 30, true)
	m.lastSearch = "absent"
	_, cmd := m.Update(keyRunes("N"))
	if cmd == nil {
		t.Fatal("expected a notice command")
	}
	if msg, ok := cmd().(noticeMsg); !ok || !strings.Contains(string(msg), "absent") {
		t.Fatalf("unexpected notice %v", msg)
	}
}

func TestViewerQuitAndPager(t *testing.T) {
	m := NewViewerModel("/logs/job.out", "one\ntwo\n", 80, 30, false)

	_, cmd := m.Update(keyRunes("v"))
	if _, ok := cmd().(noticeMsg); !ok {
		t.Fatal("pager on a remote file should only explain why not")
	}

	_, cmd = m.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatal("expected a close command")
	}
	if _, ok := cmd().(viewerClosedMsg); !ok {
		t.Fatal("q should close the viewer")
	}
}

func TestViewerEscCancelsSearch(t *testing.T) {
	m := NewViewerModel("/logs/job.out", "one\ntwo\n", 80, 30, true)
	m, _ = m.Update(keyRunes("/"))
	m, _ = m.Update(keyRunes("tw"))
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.InSearchMode() || m.lastSearch != "" || cmd != nil {
		t.Fatalf("esc should cancel without searching: mode=%v last=%q", m.InSearchMode(), m.lastSearch)
	}
}

func TestViewerWrapsLongLines(t *testing.T) {
	long := strings.Repeat("word ", 60)
	m := NewViewerModel("/logs/job.out", long, 40, 20, true)
	if len(m.wrapped) < 2 {
		t.Fatalf("expected the line to wrap, got %d visual lines", len(m.wrapped))
	}
	for _, line := range m.wrapped {
		if len(line) > m.view.Width {
			t.Fatalf("wrapped line wider than viewport: %q", line)
		}
	}
}
