package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// newTestLogger returns a Logger that writes JSON into buf.
func newTestLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	h := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level})
	return NewWithHandler(h)
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v (raw: %s)", err, buf.String())
	}
	return entry
}

func TestLogger_Module(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelDebug)
	l.Module("coordinator").Info("threshold met")

	entry := decodeEntry(t, &buf)
	if entry["module"] != "coordinator" {
		t.Fatalf("module = %v, want %q", entry["module"], "coordinator")
	}
	if entry["msg"] != "threshold met" {
		t.Fatalf("msg = %v, want %q", entry["msg"], "threshold met")
	}
}

func TestLogger_ModuleWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelDebug)
	l.Module("scanner").With("user_id", "alice").Info("event promoted")

	entry := decodeEntry(t, &buf)
	if entry["module"] != "scanner" {
		t.Fatalf("module = %v, want %q", entry["module"], "scanner")
	}
	if entry["user_id"] != "alice" {
		t.Fatalf("user_id = %v, want %q", entry["user_id"], "alice")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level  slog.Level
		logFn  func(l *Logger)
		expect bool
	}{
		{slog.LevelInfo, func(l *Logger) { l.Debug("nope") }, false},
		{slog.LevelInfo, func(l *Logger) { l.Info("yes") }, true},
		{slog.LevelInfo, func(l *Logger) { l.Warn("yes") }, true},
		{slog.LevelWarn, func(l *Logger) { l.Info("nope") }, false},
		{slog.LevelWarn, func(l *Logger) { l.Error("yes") }, true},
		{slog.LevelDebug, func(l *Logger) { l.Debug("yes") }, true},
	}

	for i, tt := range tests {
		var buf bytes.Buffer
		l := newTestLogger(&buf, tt.level)
		tt.logFn(l)

		if got := buf.Len() > 0; got != tt.expect {
			t.Errorf("test %d: output=%v, want %v (level=%v, buf=%s)",
				i, got, tt.expect, tt.level, buf.String())
		}
	}
}

func TestLogger_KeyValueArgs(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelInfo)
	l.Info("event scanned", "event_id", 42, "matched", true)

	entry := decodeEntry(t, &buf)
	// encoding/json decodes JSON numbers into interface{} as float64.
	if v, ok := entry["event_id"].(float64); !ok || v != 42 {
		t.Fatalf("event_id = %v, want 42", entry["event_id"])
	}
	if entry["matched"] != true {
		t.Fatalf("matched = %v, want true", entry["matched"])
	}
}

func TestDefaultLogger(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}

	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelInfo)
	SetDefault(l)
	defer SetDefault(New(slog.LevelInfo))

	Info("scan complete", "events", 3)
	if !strings.Contains(buf.String(), "scan complete") {
		t.Fatalf("output missing 'scan complete': %s", buf.String())
	}

	// SetDefault(nil) should be a no-op.
	SetDefault(nil)
	if Default() != l {
		t.Fatal("SetDefault(nil) replaced the logger")
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelDebug)
	SetDefault(l)
	defer SetDefault(New(slog.LevelInfo))

	Debug("share request sent")
	Info("share received")
	Warn("node timed out")
	Error("threshold unavailable")

	out := buf.String()
	for _, msg := range []string{"share request sent", "share received", "node timed out", "threshold unavailable"} {
		if !strings.Contains(out, msg) {
			t.Errorf("missing message %q in output", msg)
		}
	}
}
