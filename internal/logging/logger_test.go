package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"info", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"trace", LevelTrace},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)

	logger.Debug("hidden")
	logger.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message should be suppressed at info level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("info message should appear at info level")
	}
}

func TestNewLoggerTraceLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)

	logger.Log(nil, LevelTrace, "draw detail")

	if !strings.Contains(buf.String(), "TRACE") {
		t.Errorf("expected TRACE label in output, got: %s", buf.String())
	}
}

func TestCheckpointLoggerNilSafe(t *testing.T) {
	var cl *CheckpointLogger
	cl.Log(map[string]any{"metric": "age"})
	cl.Close()
}

func TestCheckpointLoggerInfoLevelDisabled(t *testing.T) {
	dir := t.TempDir()
	if cl := NewCheckpointLogger(dir, "info"); cl != nil {
		t.Error("expected nil logger at info level")
	}
	if _, err := os.Stat(filepath.Join(dir, "checkpoints.jsonl")); !os.IsNotExist(err) {
		t.Error("no file should be created at info level")
	}
}

func TestCheckpointLoggerWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	cl := NewCheckpointLogger(dir, "debug")
	if cl == nil {
		t.Fatal("expected non-nil logger at debug level")
	}

	cl.Log(map[string]any{"metric": "follicular_glucose", "observed": 114.2})
	cl.Log(map[string]any{"metric": "phase_balance", "observed": 0.44})
	cl.Close()

	data, err := os.ReadFile(filepath.Join(dir, "checkpoints.jsonl"))
	if err != nil {
		t.Fatalf("reading checkpoint file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var event map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("line 0 is not valid JSON: %v", err)
	}
	if event["metric"] != "follicular_glucose" {
		t.Errorf("expected metric 'follicular_glucose', got %v", event["metric"])
	}
	if _, ok := event["time"]; !ok {
		t.Error("expected automatic time field")
	}
}
