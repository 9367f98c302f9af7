package main

import "testing"

func TestClassifyState(t *testing.T) {
	tests := []struct {
		input string
		kind  StateKind
		text  string
		code  string
	}{
		{"RUNNING", StateRunning, "", "R"},
		{"PENDING", StatePending, "", "PD"},
		{"COMPLETED", StateCompleted, "", "CD"},
		{"FAILED", StateFailed, "", "F"},
		{"CANCELLED by 0", StateCancelled, "CANCELLED by 0", "CA"},
		{"CANCELLED by 4840", StateCancelled, "CANCELLED by 4840", "CA"},
		{"TIMEOUT", StateCancelled, "TIMEOUT", "TO"},
		{"OUT_OF_MEMORY", StateCancelled, "OUT_OF_MEMORY", "OOM"},
		{"DEADLINE", StateCancelled, "DEADLINE", "DL"},
		{"State", StateHeader, "", ""},
		{"WEIRD_STATUS", StateUnknown, "WEIRD_STATUS", "?"},
		{"", StateUnknown, "", "?"},
		{"running", StateUnknown, "running", "?"},
	}

	for _, tt := range tests {
		got := ClassifyState(tt.input)
		if got.Kind != tt.kind || got.Text != tt.text {
			t.Errorf("ClassifyState(%q) = %+v, want kind %d text %q", tt.input, got, tt.kind, tt.text)
		}
		if code := got.Code(); code != tt.code {
			t.Errorf("ClassifyState(%q).Code() = %q, want %q", tt.input, code, tt.code)
		}
	}
}

func TestJobStateStringKeepsOriginalText(t *testing.T) {
	if got := ClassifyState("CANCELLED by 4840").String(); got != "CANCELLED by 4840" {
		t.Errorf("cancelled String() = %q", got)
	}
	if got := ClassifyState("NODE_FAIL").String(); got != "NODE_FAIL" {
		t.Errorf("unknown String() = %q", got)
	}
	if got := ClassifyState("State").String(); got != "State" {
		t.Errorf("header String() = %q", got)
	}
}

func TestCollectJobStats(t *testing.T) {
	records := []JobRecord{
		{State: ClassifyState("RUNNING")},
		{State: ClassifyState("RUNNING")},
		{State: ClassifyState("PENDING")},
		{State: ClassifyState("COMPLETED")},
		{State: ClassifyState("FAILED")},
		{State: ClassifyState("TIMEOUT")},
		{State: ClassifyState("NODE_FAIL")},
		{State: ClassifyState("State")},
	}
	got := collectJobStats(records)
	want := jobStats{Running: 2, Pending: 1, Completed: 1, Failed: 2, Other: 1}
	if got != want {
		t.Fatalf("collectJobStats = %+v, want %+v", got, want)
	}
}
