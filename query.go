package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

type windowKind int

const (
	WindowToday windowKind = iota
	WindowThreeDays
	WindowWeek
	WindowRange
)

// TimeWindow is the span of accounting history requested from sacct.
// Start and End are only used by WindowRange; a zero End means "now".
type TimeWindow struct {
	Kind  windowKind
	Start time.Time
	End   time.Time
}

func (w TimeWindow) String() string {
	switch w.Kind {
	case WindowThreeDays:
		return "3 days"
	case WindowWeek:
		return "Week"
	case WindowRange:
		end := "now"
		if !w.End.IsZero() {
			end = w.End.Format("01-02 15:04")
		}
		return w.Start.Format("01-02 15:04") + " → " + end
	default:
		return "Today"
	}
}

// HoursBack resolves the window to the number of hours sacct should look
// back from now. An explicit range counts whole hours from its start,
// rounded up, and never less than one.
func (w TimeWindow) HoursBack(now time.Time) int {
	switch w.Kind {
	case WindowThreeDays:
		return 72
	case WindowWeek:
		return 168
	case WindowRange:
		h := int(math.Ceil(now.Sub(w.Start).Hours()))
		if h < 1 {
			h = 1
		}
		return h
	default:
		return 24
	}
}

// next cycles the preset windows. A range window falls back to Today.
func (w TimeWindow) next() TimeWindow {
	switch w.Kind {
	case WindowToday:
		return TimeWindow{Kind: WindowThreeDays}
	case WindowThreeDays:
		return TimeWindow{Kind: WindowWeek}
	default:
		return TimeWindow{Kind: WindowToday}
	}
}

func parseWindow(value string) (TimeWindow, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "today", "day", "":
		return TimeWindow{Kind: WindowToday}, nil
	case "3days", "3d", "three-days":
		return TimeWindow{Kind: WindowThreeDays}, nil
	case "week", "7days", "7d":
		return TimeWindow{Kind: WindowWeek}, nil
	}
	from, to, ok := strings.Cut(value, ",")
	if !ok {
		return TimeWindow{}, fmt.Errorf("unknown window %q (want today, 3days, week or START,END)", value)
	}
	start, err := parseWindowTime(from)
	if err != nil {
		return TimeWindow{}, err
	}
	w := TimeWindow{Kind: WindowRange, Start: start}
	if strings.TrimSpace(to) != "" {
		if w.End, err = parseWindowTime(to); err != nil {
			return TimeWindow{}, err
		}
		if !w.End.After(w.Start) {
			return TimeWindow{}, fmt.Errorf("window end %s is not after start %s", to, from)
		}
	}
	return w, nil
}

func parseWindowTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{sacctTimeLayout, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid window time %q", value)
}

type StatusFilter int

const (
	FilterAll StatusFilter = iota
	FilterRunning
	FilterFinished
)

func (s StatusFilter) String() string {
	switch s {
	case FilterRunning:
		return "Running"
	case FilterFinished:
		return "Finished"
	default:
		return "All"
	}
}

func (s StatusFilter) next() StatusFilter {
	return (s + 1) % 3
}

func parseStatusFilter(value string) (StatusFilter, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "all", "":
		return FilterAll, nil
	case "running":
		return FilterRunning, nil
	case "finished":
		return FilterFinished, nil
	default:
		return FilterAll, fmt.Errorf("unknown status filter %q (want all, running or finished)", value)
	}
}

// Keep reports whether a record passes the filter.
func (s StatusFilter) Keep(state JobState) bool {
	switch s {
	case FilterRunning:
		return state.Kind == StateRunning || state.Kind == StateHeader
	case FilterFinished:
		return state.Kind != StateRunning
	default:
		return true
	}
}

// QueryState holds the parameters of the current or pending refresh. Dirty
// asks for an immediate re-query and is cleared once one is issued.
type QueryState struct {
	Refresh bool
	Window  TimeWindow
	Filter  StatusFilter
	Dirty   bool
}

// QueryEngine runs one refresh: sacct for a window, parse, peak-memory
// roll-up, status filter, sort and cap.
type QueryEngine struct {
	runner  Runner
	user    string
	maxRows int
	now     func() time.Time
	logger  *slog.Logger
	group   singleflight.Group
}

func NewQueryEngine(runner Runner, user string, maxRows int, logger *slog.Logger) *QueryEngine {
	return &QueryEngine{
		runner:  runner,
		user:    user,
		maxRows: maxRows,
		now:     time.Now,
		logger:  logger,
	}
}

func (e *QueryEngine) sacctArgs(w TimeWindow) []string {
	args := []string{
		"--format=" + strings.Join(sacctColumns[:], ","),
		"-P",
		fmt.Sprintf("--starttime=now-%dhours", w.HoursBack(e.now())),
	}
	if w.Kind == WindowRange && !w.End.IsZero() {
		args = append(args, "--endtime="+w.End.Format(sacctTimeLayout))
	}
	if e.user != "" {
		args = append(args, "-u", e.user)
	}
	return args
}

// Fetch queries sacct for the window in qs and returns the records to show,
// most recently submitted first.
func (e *QueryEngine) Fetch(ctx context.Context, qs QueryState) (Table, error) {
	args := e.sacctArgs(qs.Window)
	key := strings.Join(args, " ")

	// A tick and a manual refresh may ask for the same invocation at once.
	v, err, shared := e.group.Do(key, func() (any, error) {
		out, err := e.runner.Run(ctx, "sacct", args...)
		if err != nil {
			return nil, err
		}
		return ParseSacct(out)
	})
	if err != nil {
		return Table{}, err
	}
	parsed := v.(Table)
	if shared {
		e.logger.Debug("sacct invocation shared", "args", key)
	}

	records := dropStepRecords(parsed.Records)
	records = rollUpPeakMemory(records, parsed.Records)
	records = filterRecords(records, qs.Filter)
	sortBySubmit(records)
	records = capRecords(records, e.maxRows)

	e.logger.Debug("jobs fetched", "parsed", len(parsed.Records), "shown", len(records),
		"window", qs.Window.String(), "filter", qs.Filter.String())
	return Table{Header: parsed.Header, Records: records}, nil
}

// dropStepRecords removes rows without a partition: sacct emits those for
// job steps (.batch, .extern, ...), which are not jobs of their own.
func dropStepRecords(records []JobRecord) []JobRecord {
	out := make([]JobRecord, 0, len(records))
	for _, r := range records {
		if r.Partition == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

func isStepOf(stepID, jobID string) bool {
	if !strings.HasPrefix(stepID, jobID) {
		return false
	}
	rest := stepID[len(jobID):]
	return rest == "" || rest[0] == '.'
}

// rollUpPeakMemory sets each job's MaxRSS to the largest numeric MaxRSS of
// the job and its steps in all. A job with no numeric value keeps its own.
func rollUpPeakMemory(jobs, all []JobRecord) []JobRecord {
	for i := range jobs {
		if jobs[i].State.Kind == StateHeader {
			continue
		}
		var peak uint64
		found := false
		for _, step := range all {
			if !isStepOf(step.JobID, jobs[i].JobID) {
				continue
			}
			if v, ok := step.MaxRSS.Take(); ok && (!found || v > peak) {
				peak = v
				found = true
			}
		}
		if found {
			jobs[i].MaxRSS = Num(peak)
		}
	}
	return jobs
}

func filterRecords(records []JobRecord, filter StatusFilter) []JobRecord {
	out := records[:0]
	for _, r := range records {
		if filter.Keep(r.State) {
			out = append(out, r)
		}
	}
	return out
}

// sortBySubmit orders records newest first. Records without a submit time
// go last, keeping their relative order.
func sortBySubmit(records []JobRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Submit, records[j].Submit
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.After(b)
	})
}

// capRecords limits the display to maxRows rows. Row zero of the display is
// the legend, so maxRows-1 records are kept. A non-positive limit disables
// the cap.
func capRecords(records []JobRecord, maxRows int) []JobRecord {
	if maxRows <= 0 {
		return records
	}
	keep := maxRows - 1
	if keep < len(records) {
		return records[:keep]
	}
	return records
}
