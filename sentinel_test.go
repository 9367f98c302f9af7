package main

import "testing"

func TestParseNumberOrCol(t *testing.T) {
	tests := []struct {
		input  string
		want   uint64
		number bool
	}{
		{"", 0, true},
		{"0", 0, true},
		{"1024", 1024, true},
		{"512K", 512, true},
		{"3M", 3 << 10, true},
		{"4G", 4 << 20, true},
		{"2T", 2 << 30, true},
		{"4Gn", 4 << 20, true},
		{"16Gc", 16 << 20, true},
		{"abc", 0, false},
		{"UNLIMITED", 0, false},
		{"K", 0, false},
		{"4n", 0, false},
		{"1.5G", 0, false},
		{"MaxRSS", 0, false},
	}

	for _, tt := range tests {
		got := ParseNumberOrCol(tt.input)
		v, ok := got.Take()
		if ok != tt.number {
			t.Errorf("ParseNumberOrCol(%q) numeric = %v, want %v", tt.input, ok, tt.number)
			continue
		}
		if ok && v != tt.want {
			t.Errorf("ParseNumberOrCol(%q) = %d, want %d", tt.input, v, tt.want)
		}
		if !ok && got.String() != tt.input {
			t.Errorf("placeholder for %q carries %q", tt.input, got.String())
		}
	}
}

func TestSentinelString(t *testing.T) {
	if got := Num(42).String(); got != "42" {
		t.Errorf("Num(42).String() = %q", got)
	}
	if got := Col("N/A").String(); got != "N/A" {
		t.Errorf("Col(N/A).String() = %q", got)
	}
	if Col("N/A").IsNum() || !Num(0).IsNum() {
		t.Error("IsNum disagrees with the constructor")
	}
}

func TestParseSlurmElapsed(t *testing.T) {
	tests := []struct {
		input   string
		want    uint64
		wantErr bool
	}{
		{"00:00", 0, false},
		{"05:30", 330, false},
		{"05:30.123", 330, false},
		{"01:02:03", 3723, false},
		{"1-02:03:04", 93784, false},
		{"12", 0, true},
		{"1:2:3:4", 0, true},
		{"x-01:00:00", 0, true},
		{"01:aa", 0, true},
	}
	for _, tt := range tests {
		got, err := parseSlurmElapsed(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSlurmElapsed(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseSlurmElapsed(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseCPUTimeAndTimeLimit(t *testing.T) {
	if v, ok := parseCPUTime("02:00:00").Take(); !ok || v != 7200 {
		t.Errorf("parseCPUTime(02:00:00) = %d, %v", v, ok)
	}
	if v, ok := parseCPUTime("").Take(); !ok || v != 0 {
		t.Errorf("parseCPUTime(\"\") = %d, %v", v, ok)
	}
	if got := parseCPUTime("TotalCPU"); got.IsNum() || got.String() != "TotalCPU" {
		t.Errorf("parseCPUTime(TotalCPU) = %+v", got)
	}

	if v, ok := parseTimeLimit("60").Take(); !ok || v != 3600 {
		t.Errorf("parseTimeLimit(60) = %d, %v", v, ok)
	}
	if got := parseTimeLimit("UNLIMITED"); got.IsNum() {
		t.Errorf("parseTimeLimit(UNLIMITED) should stay a placeholder, got %+v", got)
	}
}
