package main

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type column int

const (
	colJobID column = iota
	colJobName
	colPartition
	colAccount
	colAllocCPUs
	colState
	colExitCode
	colSubmitLine
	colWorkDir
	colSubmit
	colReqMem
	colMaxRSS
	colElapsed
	colTimeLimit
	colTotalCPU
	numColumns
)

// sacctColumns is the canonical column order. The order sacct is invoked
// with does not matter; the parser maps header names back onto it.
var sacctColumns = [numColumns]string{
	colJobID:      "JobID",
	colJobName:    "JobName",
	colPartition:  "Partition",
	colAccount:    "Account",
	colAllocCPUs:  "AllocCPUS",
	colState:      "State",
	colExitCode:   "ExitCode",
	colSubmitLine: "SubmitLine",
	colWorkDir:    "WorkDir",
	colSubmit:     "Submit",
	colReqMem:     "ReqMem",
	colMaxRSS:     "MaxRSS",
	colElapsed:    "ElapsedRaw",
	colTimeLimit:  "TimelimitRaw",
	colTotalCPU:   "TotalCPU",
}

var columnByName = func() map[string]column {
	m := make(map[string]column, numColumns)
	for c, name := range sacctColumns {
		m[name] = column(c)
	}
	return m
}()

const (
	sacctDelimiter  = "|"
	sacctTimeLayout = "2006-01-02T15:04:05"
)

var (
	ErrColumnCountMismatch = errors.New("column count mismatch")
	ErrUnknownColumn       = errors.New("unknown column")
	ErrDuplicateColumn     = errors.New("duplicate column")
	ErrBadTimestamp        = errors.New("bad timestamp")
	ErrEmptyOutput         = errors.New("empty accounting output")
)

// ParseError reports malformed accounting text. Line is 1-based; the header
// is line 1.
type ParseError struct {
	Line   int
	Kind   error
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sacct output line %d: %v: %s", e.Line, e.Kind, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

// JobRecord is one row of accounting data. Submit is zero when sacct did
// not report a submit time.
type JobRecord struct {
	JobID      string
	JobName    string
	Partition  string
	Account    string
	AllocCPUs  NumberOrCol
	State      JobState
	ExitCode   string
	SubmitLine string
	WorkDir    string
	Submit     time.Time
	ReqMem     NumberOrCol
	MaxRSS     NumberOrCol
	Elapsed    NumberOrCol
	TimeLimit  NumberOrCol
	CPUTime    NumberOrCol
}

// Header is the column-header line of one sacct invocation. order holds, for
// each position in the emitted line, the canonical column it carries.
type Header struct {
	Names []string
	order []column
}

// Label returns the name sacct printed for a canonical column.
func (h Header) Label(c column) string {
	for i, oc := range h.order {
		if oc == c {
			return h.Names[i]
		}
	}
	return sacctColumns[c]
}

func canonicalHeader() Header {
	h := Header{Names: make([]string, numColumns), order: make([]column, numColumns)}
	for c := column(0); c < numColumns; c++ {
		h.Names[c] = sacctColumns[c]
		h.order[c] = c
	}
	return h
}

// Table is one parsed sacct invocation.
type Table struct {
	Header  Header
	Records []JobRecord
}

func parseHeader(line string) (Header, error) {
	names := strings.Split(line, sacctDelimiter)
	if len(names) != int(numColumns) {
		return Header{}, &ParseError{Line: 1, Kind: ErrColumnCountMismatch,
			Detail: fmt.Sprintf("got %d columns, want %d", len(names), numColumns)}
	}
	h := Header{Names: names, order: make([]column, len(names))}
	seen := make(map[column]bool, len(names))
	for i, name := range names {
		c, ok := columnByName[name]
		if !ok {
			return Header{}, &ParseError{Line: 1, Kind: ErrUnknownColumn, Detail: fmt.Sprintf("%q", name)}
		}
		if seen[c] {
			return Header{}, &ParseError{Line: 1, Kind: ErrDuplicateColumn, Detail: fmt.Sprintf("%q", name)}
		}
		seen[c] = true
		h.order[i] = c
	}
	return h, nil
}

// ParseSacct parses `sacct -P` output: one header line naming the columns
// in invocation order, then one line per record.
func ParseSacct(text string) (Table, error) {
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" {
		return Table{}, &ParseError{Line: 1, Kind: ErrEmptyOutput, Detail: "no header line"}
	}
	lines := strings.Split(text, "\n")

	header, err := parseHeader(strings.TrimRight(lines[0], "\r"))
	if err != nil {
		return Table{}, err
	}

	records := make([]JobRecord, 0, len(lines)-1)
	for i, line := range lines[1:] {
		lineNo := i + 2
		parts := strings.Split(strings.TrimRight(line, "\r"), sacctDelimiter)
		if len(parts) != len(header.order) {
			return Table{}, &ParseError{Line: lineNo, Kind: ErrColumnCountMismatch,
				Detail: fmt.Sprintf("got %d fields, want %d", len(parts), len(header.order))}
		}
		var cells [numColumns]string
		for pos, c := range header.order {
			cells[c] = parts[pos]
		}
		rec, err := recordFromCells(cells)
		if err != nil {
			return Table{}, &ParseError{Line: lineNo, Kind: ErrBadTimestamp, Detail: err.Error()}
		}
		records = append(records, rec)
	}
	return Table{Header: header, Records: records}, nil
}

func recordFromCells(cells [numColumns]string) (JobRecord, error) {
	submit, err := parseSubmit(cells[colSubmit])
	if err != nil {
		return JobRecord{}, err
	}
	return JobRecord{
		JobID:      cells[colJobID],
		JobName:    cells[colJobName],
		Partition:  cells[colPartition],
		Account:    cells[colAccount],
		AllocCPUs:  ParseNumberOrCol(cells[colAllocCPUs]),
		State:      ClassifyState(cells[colState]),
		ExitCode:   cells[colExitCode],
		SubmitLine: cells[colSubmitLine],
		WorkDir:    cells[colWorkDir],
		Submit:     submit,
		ReqMem:     ParseNumberOrCol(cells[colReqMem]),
		MaxRSS:     ParseNumberOrCol(cells[colMaxRSS]),
		Elapsed:    ParseNumberOrCol(cells[colElapsed]),
		TimeLimit:  parseTimeLimit(cells[colTimeLimit]),
		CPUTime:    parseCPUTime(cells[colTotalCPU]),
	}, nil
}

// parseSubmit reads slurm's zone-less local timestamp. "Unknown" and empty
// cells yield the zero time.
func parseSubmit(text string) (time.Time, error) {
	switch text {
	case "", "Unknown", "None", sacctColumns[colSubmit]:
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(sacctTimeLayout, text, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("submit %q: %w", text, err)
	}
	return t, nil
}
