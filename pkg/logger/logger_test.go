package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestParseLevelAcceptsAliases(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":    DEBUG,
		"INFO":     INFO,
		"":         INFO,
		"Warning":  WARN,
		"WARN":     WARN,
		"error":    ERROR,
		"CRITICAL": FATAL,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestConsoleHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Console: &buf, ConsoleLevel: WARN})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	log.InfoC("bot", "hidden line")
	log.ErrorCF("bot", "visible line", map[string]interface{}{FieldChatID: "42"})

	out := buf.String()
	if strings.Contains(out, "hidden line") {
		t.Fatalf("info line should be filtered, got: %q", out)
	}
	if !strings.Contains(out, "[ERROR]") || !strings.Contains(out, "bot: visible line") {
		t.Fatalf("missing error line, got: %q", out)
	}
	if !strings.Contains(out, "{chat_id=42}") {
		t.Fatalf("missing fields, got: %q", out)
	}
}

func TestFileSinkAppendsJSONWithOwnLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "app.log")

	var console bytes.Buffer
	log, err := New(Options{
		Console:      &console,
		ConsoleLevel: ERROR,
		FilePath:     path,
		FileLevel:    DEBUG,
	})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.DebugCF("telegram", "poll round", map[string]interface{}{FieldUpdateID: 7})
	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if console.Len() != 0 {
		t.Fatalf("console should be empty, got: %q", console.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), data)
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.Level != "DEBUG" || entry.Component != "telegram" || entry.Message != "poll round" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Timestamp == "" {
		t.Fatalf("entry has no timestamp")
	}

	// Reopening appends instead of truncating.
	log, err = New(Options{Console: &console, ConsoleLevel: ERROR, FilePath: path, FileLevel: INFO})
	if err != nil {
		t.Fatalf("reopen logger: %v", err)
	}
	log.InfoC("main", "second run")
	_ = log.Close()

	data, _ = os.ReadFile(path)
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Fatalf("expected 2 lines after reopen, got %d", got)
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.ErrorC("bot", "nothing happens")
	if err := log.Close(); err != nil {
		t.Fatalf("close nop: %v", err)
	}
}

func TestLoggingWhileClosingIsSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(Options{Console: &bytes.Buffer{}, ConsoleLevel: FATAL, FilePath: path, FileLevel: DEBUG})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				log.InfoCF("test", "late entry", map[string]interface{}{"n": j})
			}
		}()
	}
	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	wg.Wait()

	log.InfoC("test", "after close")
	if err := log.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
