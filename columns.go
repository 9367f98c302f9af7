package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
)

// jobColumn is one column of the job table. flex columns absorb the width
// left after the fixed ones; optional columns are dropped first when the
// window is narrow.
type jobColumn struct {
	title    string
	width    int
	flex     bool
	optional bool
	cell     func(JobRecord) string
}

func numCell(v NumberOrCol) string {
	return v.String()
}

// jobColumns is the column set for the current mode. Titles come from the
// sacct header so the legend shows what sacct printed.
func jobColumns(efficiency bool, h Header) []jobColumn {
	cols := []jobColumn{
		{title: h.Label(colJobID), width: 15, cell: func(r JobRecord) string { return r.JobID }},
		{title: h.Label(colJobName), width: 20, flex: true, cell: func(r JobRecord) string { return r.JobName }},
		{title: h.Label(colPartition), width: 14, optional: true, cell: func(r JobRecord) string { return r.Partition }},
		{title: h.Label(colAllocCPUs), width: 10, optional: true, cell: func(r JobRecord) string { return numCell(r.AllocCPUs) }},
		{title: h.Label(colState), width: 14, cell: func(r JobRecord) string { return r.State.String() }},
	}
	if efficiency {
		return append(cols,
			jobColumn{title: memEffLabel, width: 10, cell: MemEff},
			jobColumn{title: timeEffLabel, width: 10, cell: TimeEff},
			jobColumn{title: cpuEffLabel, width: 10, optional: true, cell: CPUEff},
		)
	}
	return append(cols,
		jobColumn{title: h.Label(colExitCode), width: 10, optional: true, cell: func(r JobRecord) string { return r.ExitCode }},
		jobColumn{title: h.Label(colSubmitLine), width: 25, optional: true, cell: func(r JobRecord) string { return r.SubmitLine }},
		jobColumn{title: h.Label(colSubmit), width: 20, optional: true, cell: func(r JobRecord) string { return formatSubmit(r.Submit) }},
	)
}

// responsiveJobColumns fits cols into contentWidth: optional columns are
// kept left to right while the flex column can still get its base width,
// then the flex column takes what remains.
func responsiveJobColumns(cols []jobColumn, contentWidth int) []jobColumn {
	usable := contentWidth - 2
	if usable < 1 {
		usable = 1
	}

	used := 0
	flexMin := 0
	for _, c := range cols {
		switch {
		case c.flex:
			flexMin = c.width
		case !c.optional:
			used += c.width
		}
	}

	out := make([]jobColumn, 0, len(cols))
	for _, c := range cols {
		if c.optional {
			if usable-(used+c.width) < flexMin {
				continue
			}
			used += c.width
		}
		out = append(out, c)
	}

	for i := range out {
		if out[i].flex {
			w := usable - used
			if w < flexMin {
				w = flexMin
			}
			out[i].width = w
		}
	}
	return out
}

func tableColumns(cols []jobColumn) []table.Column {
	out := make([]table.Column, len(cols))
	for i, c := range cols {
		out[i] = table.Column{Title: c.title, Width: c.width}
	}
	return out
}

func formatSubmit(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Format("2006-01-02 15:04:05")
}

// formatKilobytes renders a memory amount held in kilobytes.
func formatKilobytes(v NumberOrCol) string {
	kb, ok := v.Take()
	if !ok {
		return v.String()
	}
	units := []string{"K", "M", "G", "T"}
	f := float64(kb)
	i := 0
	for f >= 1024 && i < len(units)-1 {
		f /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d%s", kb, units[0])
	}
	return fmt.Sprintf("%.1f%s", f, units[i])
}

// formatSeconds renders a duration held in seconds as [D-]HH:MM:SS, the way
// sacct prints elapsed times.
func formatSeconds(v NumberOrCol) string {
	secs, ok := v.Take()
	if !ok {
		return v.String()
	}
	d := secs / 86400
	h := secs % 86400 / 3600
	m := secs % 3600 / 60
	s := secs % 60
	if d > 0 {
		return fmt.Sprintf("%d-%02d:%02d:%02d", d, h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// jobDetails is the key/value listing of the details panel.
func jobDetails(r JobRecord) [][2]string {
	rows := [][2]string{
		{"Job ID", r.JobID},
		{"Name", r.JobName},
		{"State", r.State.String()},
		{"State code", r.State.Code()},
		{"Partition", r.Partition},
		{"Account", r.Account},
		{"CPUs", numCell(r.AllocCPUs)},
		{"Exit code", r.ExitCode},
		{"Submitted", formatSubmit(r.Submit)},
		{"Elapsed", formatSeconds(r.Elapsed)},
		{"Time limit", formatSeconds(r.TimeLimit)},
		{"CPU time", formatSeconds(r.CPUTime)},
		{"Req mem", formatKilobytes(r.ReqMem)},
		{"Max RSS", formatKilobytes(r.MaxRSS)},
		{memEffLabel, MemEff(r)},
		{timeEffLabel, TimeEff(r)},
		{cpuEffLabel, CPUEff(r)},
		{"Work dir", r.WorkDir},
		{"Submit line", r.SubmitLine},
	}
	return rows
}
