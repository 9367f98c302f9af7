package main

import (
	"strings"
)

type StateKind int

const (
	StateUnknown StateKind = iota
	StateRunning
	StateCompleted
	StateFailed
	StatePending
	StateCancelled
	// StateHeader marks the column-header row, not real data.
	StateHeader
)

// JobState is the classified State column. Text keeps the original cell
// for the Cancelled and Unknown variants.
type JobState struct {
	Kind StateKind
	Text string
}

const headerStateLabel = "State"

// ClassifyState maps a raw State cell onto a JobState. Only the first word
// is significant; sacct appends reasons such as "CANCELLED by 4840".
// Classification is total: anything unrecognized becomes Unknown.
func ClassifyState(text string) JobState {
	first := ""
	if fields := strings.Fields(text); len(fields) > 0 {
		first = fields[0]
	}
	switch first {
	case "COMPLETED":
		return JobState{Kind: StateCompleted}
	case "OUT_OF_MEMORY", "CANCELLED", "TIMEOUT", "DEADLINE":
		return JobState{Kind: StateCancelled, Text: text}
	case "PENDING":
		return JobState{Kind: StatePending}
	case "RUNNING":
		return JobState{Kind: StateRunning}
	case "FAILED":
		return JobState{Kind: StateFailed}
	case headerStateLabel:
		return JobState{Kind: StateHeader}
	default:
		return JobState{Kind: StateUnknown, Text: text}
	}
}

func (s JobState) String() string {
	switch s.Kind {
	case StateCompleted:
		return "COMPLETED"
	case StateRunning:
		return "RUNNING"
	case StateFailed:
		return "FAILED"
	case StatePending:
		return "PENDING"
	case StateHeader:
		return headerStateLabel
	default:
		return s.Text
	}
}

// Code returns the short slurm state code (R, PD, CD, ...).
func (s JobState) Code() string {
	switch s.Kind {
	case StateRunning:
		return "R"
	case StatePending:
		return "PD"
	case StateCompleted:
		return "CD"
	case StateFailed:
		return "F"
	case StateHeader:
		return ""
	case StateCancelled:
		return cancelledCode(s.Text)
	default:
		return "?"
	}
}

func cancelledCode(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "CA"
	}
	switch fields[0] {
	case "OUT_OF_MEMORY":
		return "OOM"
	case "TIMEOUT":
		return "TO"
	case "DEADLINE":
		return "DL"
	default:
		return "CA"
	}
}

type jobStats struct {
	Running   int
	Pending   int
	Completed int
	Failed    int
	Other     int
}

func collectJobStats(records []JobRecord) jobStats {
	stats := jobStats{}
	for _, r := range records {
		switch r.State.Kind {
		case StateRunning:
			stats.Running++
		case StatePending:
			stats.Pending++
		case StateCompleted:
			stats.Completed++
		case StateFailed, StateCancelled:
			stats.Failed++
		case StateHeader:
		default:
			stats.Other++
		}
	}
	return stats
}
