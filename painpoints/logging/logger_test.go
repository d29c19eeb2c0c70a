package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewConsole(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.With("run_id", "r1").WithGroup("chunk").Info("saved chunk", "path", "out dir/a.json", "rows", 3)
	logger.Debug("hidden")
	logger.Warn("model call failed", "error", errors.New("429 too many"))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%d, want 2: %q", len(lines), out)
	}
	for _, want := range []string{"INFO  saved chunk", "run_id=r1", `chunk.path="out dir/a.json"`, "chunk.rows=3"} {
		if !strings.Contains(lines[0], want) {
			t.Fatalf("line %q missing %q", lines[0], want)
		}
	}
	if !strings.Contains(lines[1], `WARN  model call failed error="429 too many"`) {
		t.Fatalf("unexpected warn line %q", lines[1])
	}
}

func TestNewJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "JSON", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hello", "n", 2)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if rec["level"] != "debug" || rec["msg"] != "hello" || rec["n"] != float64(2) {
		t.Fatalf("unexpected record %v", rec)
	}
	if _, ok := rec["ts"]; !ok {
		t.Fatalf("missing ts in %v", rec)
	}
}

func TestNewAutoFallsBackToJSONForNonTerminal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(Options{Format: "auto", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("x")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if ValidFormat("xml") || !ValidFormat("Console") || !ValidFormat("") {
		t.Fatal("ValidFormat mismatch")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v, want %v", in, got, want)
		}
	}
}
