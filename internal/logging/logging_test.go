package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestInitWithRunLogCreatesDatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, path, closeFn, err := InitWithRunLog(dir, zapcore.InfoLevel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("first run")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	want := fmt.Sprintf("daily_%s.log", time.Now().UTC().Format("2006-01-02"))
	if filepath.Base(path) != want {
		t.Fatalf("log file = %s, want %s", filepath.Base(path), want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "first run") {
		t.Fatalf("log content = %q", data)
	}
}

func TestInitWithRunLogAppendsAcrossRuns(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	for _, msg := range []string{"run one", "run two"} {
		logger, _, closeFn, err := InitWithRunLog(dir, zapcore.InfoLevel)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		logger.Info(msg)
		if err := closeFn(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one log file, got %d", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	for _, msg := range []string{"run one", "run two"} {
		if !strings.Contains(string(data), msg) {
			t.Fatalf("log missing %q: %s", msg, data)
		}
	}
}

func TestInitWithRunLogIdempotentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	// An existing directory is not an error.
	_, _, closeFn, err := InitWithRunLog(dir, zapcore.InfoLevel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	closeFn()
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
