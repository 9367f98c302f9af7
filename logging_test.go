package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	logger, closeLog, err := NewLogger("file", "json", path, "debug")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Debug("command finished", "cmd", "sacct -P")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `"msg":"command finished"`) || !strings.Contains(line, `"cmd":"sacct -P"`) {
		t.Fatalf("unexpected log line: %s", line)
	}
}

func TestNewLoggerLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	logger, closeLog, err := NewLogger("file", "text", path, "warn")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")
	closeLog()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "dropped") || !strings.Contains(string(data), "kept") {
		t.Fatalf("level filter not applied: %s", data)
	}
}

func TestNewLoggerErrors(t *testing.T) {
	tests := []struct {
		output, format, file, level string
	}{
		{"syslog", "text", "", "info"},
		{"file", "text", "", "info"},
		{"none", "xml", "", "info"},
		{"none", "text", "", "trace"},
		{"file", "text", filepath.Join(t.TempDir(), "missing", "x.log"), "info"},
	}
	for _, tt := range tests {
		if _, _, err := NewLogger(tt.output, tt.format, tt.file, tt.level); err == nil {
			t.Errorf("NewLogger(%q, %q, %q, %q) should fail", tt.output, tt.format, tt.file, tt.level)
		}
	}

	if _, closeLog, err := NewLogger("none", "text", "", "info"); err != nil {
		t.Fatalf("none output: %v", err)
	} else {
		closeLog()
	}
}
