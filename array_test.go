package main

import (
	"reflect"
	"testing"
)

func ids(records []JobRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.JobID
	}
	return out
}

func TestFoldArrays(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"contiguous", []string{"job_10", "job_11", "job_12"}, []string{"job[10-12]"}},
		{"unordered indices", []string{"job_12", "job_10", "job_11"}, []string{"job[10-12]"}},
		{"interrupted", []string{"job_10", "other_1", "job_11"}, []string{"job[10-10]", "other[1-1]", "job[11-11]"}},
		{"plain jobs untouched", []string{"100", "101"}, []string{"100", "101"}},
		{"already collapsed", []string{"55_[1-4]", "55_5"}, []string{"55_[1-4]", "55[5-5]"}},
		{"mixed", []string{"7", "8_1", "8_2", "9"}, []string{"7", "8[1-2]", "9"}},
		{"non-numeric suffix", []string{"my_job", "my_run"}, []string{"my_job", "my_run"}},
		{"empty", nil, []string{}},
	}

	for _, tt := range tests {
		records := make([]JobRecord, len(tt.in))
		for i, id := range tt.in {
			records[i] = JobRecord{JobID: id}
		}
		got := ids(FoldArrays(records))
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: FoldArrays(%v) = %v, want %v", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestFoldArraysCopiesTemplateFields(t *testing.T) {
	records := []JobRecord{
		{JobID: "42_1", JobName: "sweep", Partition: "cpu", State: ClassifyState("RUNNING")},
		{JobID: "42_2", JobName: "sweep", Partition: "cpu", State: ClassifyState("PENDING")},
	}
	got := FoldArrays(records)
	if len(got) != 1 {
		t.Fatalf("expected one folded record, got %d", len(got))
	}
	if got[0].JobName != "sweep" || got[0].Partition != "cpu" || got[0].State.Kind != StateRunning {
		t.Fatalf("folded record should copy the first task: %+v", got[0])
	}
}

func TestSplitArrayTask(t *testing.T) {
	base, idx, ok := splitArrayTask("1234_17")
	if !ok || base != "1234" || idx != 17 {
		t.Fatalf("splitArrayTask(1234_17) = %q, %d, %v", base, idx, ok)
	}
	for _, id := range []string{"1234", "_5", "1234_", "12_[1-3]", "a_b"} {
		if _, _, ok := splitArrayTask(id); ok {
			t.Errorf("splitArrayTask(%q) should not be a task", id)
		}
	}
}
