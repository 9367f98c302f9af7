package main

import (
	"fmt"
)

// NavState is one screen of the dashboard. The concrete types are
// EmptyState, *JobListState, *LogFilesState and *EditorState.
type NavState interface {
	screenName() string
}

type EmptyState struct{}

// JobListState shows the fetched jobs. Display is Table.Records after array
// folding; display row 0 is the legend, so Highlight is 1-based into Display
// and -1 when nothing is highlighted.
type JobListState struct {
	Table     Table
	Display   []JobRecord
	Query     QueryState
	Highlight int
}

// LogFilesState lists the log files discovered for one job.
type LogFilesState struct {
	Job       JobRecord
	Paths     []string
	Highlight int
}

// EditorState holds the text of one log file. Scrolling and search belong
// to the viewer.
type EditorState struct {
	Path string
	Text string
}

func (EmptyState) screenName() string     { return "empty" }
func (*JobListState) screenName() string  { return "jobs" }
func (*LogFilesState) screenName() string { return "logs" }
func (*EditorState) screenName() string   { return "editor" }

const jobListSkipLines = 1

// Rows counts display rows including the legend.
func (s *JobListState) Rows() int {
	return len(s.Display) + jobListSkipLines
}

// Selected returns the highlighted job.
func (s *JobListState) Selected() (JobRecord, bool) {
	if s.Highlight < jobListSkipLines || s.Highlight >= s.Rows() {
		return JobRecord{}, false
	}
	return s.Display[s.Highlight-jobListSkipLines], true
}

func (s *LogFilesState) Selected() (string, bool) {
	if s.Highlight < 0 || s.Highlight >= len(s.Paths) {
		return "", false
	}
	return s.Paths[s.Highlight], true
}

// NavigationError is a caller bug: movement was requested on a screen that
// has no highlight or whose highlight is out of range.
type NavigationError struct {
	Screen    string
	Highlight int
	Rows      int
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("cannot move highlight on %s screen (highlight %d, rows %d)", e.Screen, e.Highlight, e.Rows)
}

// wrapOffset moves h by delta within [skip, rows), wrapping at both ends.
func wrapOffset(h, delta, skip, rows int) (int, bool) {
	if h < skip || h >= rows {
		return h, false
	}
	n := rows - skip
	return skip + ((h-skip+delta)%n+n)%n, true
}

// Navigator owns the active screen and the screens it was entered from.
// Going back pops the stack, restoring records and highlight exactly.
type Navigator struct {
	current NavState
	stack   []NavState
	// query is used until the first job list exists.
	query QueryState
}

func NewNavigator(qs QueryState) *Navigator {
	return &Navigator{current: EmptyState{}, query: qs}
}

func (n *Navigator) Current() NavState {
	return n.current
}

// Depth is the number of screens below the current one.
func (n *Navigator) Depth() int {
	return len(n.stack)
}

// Query returns the query parameters of the job list, live or pending.
func (n *Navigator) Query() QueryState {
	if jl, ok := n.current.(*JobListState); ok {
		return jl.Query
	}
	for i := len(n.stack) - 1; i >= 0; i-- {
		if jl, ok := n.stack[i].(*JobListState); ok {
			return jl.Query
		}
	}
	return n.query
}

// SetQuery replaces the query parameters, marking them dirty when the window
// or filter changed.
func (n *Navigator) SetQuery(qs QueryState) {
	prev := n.Query()
	if qs.Window != prev.Window || qs.Filter != prev.Filter {
		qs.Dirty = true
	}
	n.storeQuery(qs)
}

// storeQuery writes to the same job list Query reads from.
func (n *Navigator) storeQuery(qs QueryState) {
	if jl, ok := n.current.(*JobListState); ok {
		jl.Query = qs
		return
	}
	for i := len(n.stack) - 1; i >= 0; i-- {
		if jl, ok := n.stack[i].(*JobListState); ok {
			jl.Query = qs
			return
		}
	}
	n.query = qs
}

// TakeDirty reports whether an immediate re-query was requested and clears
// the request.
func (n *Navigator) TakeDirty() bool {
	qs := n.Query()
	if !qs.Dirty {
		return false
	}
	qs.Dirty = false
	n.storeQuery(qs)
	return true
}

// LoadJobs installs a fetched table. It applies only on the Empty and job
// list screens and reports whether it did. An empty first fetch leaves the
// session on the Empty screen.
func (n *Navigator) LoadJobs(t Table) bool {
	switch cur := n.current.(type) {
	case EmptyState:
		if len(t.Records) == 0 {
			return true
		}
		jl := &JobListState{Query: n.query, Highlight: -1}
		jl.load(t)
		n.current = jl
		return true
	case *JobListState:
		cur.load(t)
		return true
	default:
		return false
	}
}

func (s *JobListState) load(t Table) {
	s.Table = t
	s.Display = FoldArrays(t.Records)
	rows := s.Rows()
	switch {
	case rows <= jobListSkipLines:
		s.Highlight = -1
	case s.Highlight < jobListSkipLines || s.Highlight >= rows:
		s.Highlight = jobListSkipLines
	}
}

// Offset moves the highlight on the job list or log file list by delta
// rows, wrapping around. The legend row of the job list is never selected.
func (n *Navigator) Offset(delta int) error {
	switch cur := n.current.(type) {
	case *JobListState:
		h, ok := wrapOffset(cur.Highlight, delta, jobListSkipLines, cur.Rows())
		if !ok {
			return &NavigationError{Screen: cur.screenName(), Highlight: cur.Highlight, Rows: cur.Rows()}
		}
		cur.Highlight = h
		return nil
	case *LogFilesState:
		h, ok := wrapOffset(cur.Highlight, delta, 0, len(cur.Paths))
		if !ok {
			return &NavigationError{Screen: cur.screenName(), Highlight: cur.Highlight, Rows: len(cur.Paths)}
		}
		cur.Highlight = h
		return nil
	default:
		return &NavigationError{Screen: n.current.screenName(), Highlight: -1}
	}
}

// OpenLogFiles enters the log file list for job. With no paths nothing
// changes and false is returned.
func (n *Navigator) OpenLogFiles(job JobRecord, paths []string) bool {
	if len(paths) == 0 {
		return false
	}
	if _, ok := n.current.(*JobListState); !ok {
		return false
	}
	n.push(&LogFilesState{Job: job, Paths: paths})
	return true
}

// OpenEditor shows the text of a log file picked from the log file list.
func (n *Navigator) OpenEditor(path, text string) bool {
	if _, ok := n.current.(*LogFilesState); !ok {
		return false
	}
	n.push(&EditorState{Path: path, Text: text})
	return true
}

func (n *Navigator) push(s NavState) {
	n.stack = append(n.stack, n.current)
	n.current = s
}

// Back returns to the previous screen. It returns false when there is none,
// which means the session should end.
func (n *Navigator) Back() bool {
	if len(n.stack) == 0 {
		return false
	}
	last := len(n.stack) - 1
	n.current = n.stack[last]
	n.stack[last] = nil
	n.stack = n.stack[:last]
	return true
}
