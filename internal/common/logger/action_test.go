package logger

import (
	"bytes"
	"encoding/csv"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestNewActionLogger_CSVWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	columns := []string{"Tier", "Outcome"}

	first, err := NewActionLogger("csv", dir, "consolectl", "repair", columns)
	if err != nil {
		t.Fatalf("NewActionLogger() error = %v", err)
	}
	_ = first.WriteRow([]string{"quick", "failure"})
	first.Close()

	second, err := NewActionLogger("csv", dir, "consolectl", "repair", columns)
	if err != nil {
		t.Fatalf("NewActionLogger() error = %v", err)
	}
	_ = second.WriteRow([]string{"standard", "success"})
	second.Close()

	f, err := os.Open(second.Path())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2 rows", len(records))
	}
	if records[0][0] != "Timestamp" || records[0][1] != "Tier" {
		t.Errorf("header = %v, want Timestamp,Tier,Outcome", records[0])
	}
	if records[2][1] != "standard" {
		t.Errorf("second row tier = %q, want %q", records[2][1], "standard")
	}
}

func TestNewActionLogger_JSONReopenKeepsColumns(t *testing.T) {
	dir := t.TempDir()

	first, err := NewActionLogger("json", dir, "consolectl", "connect", []string{"Service"})
	if err != nil {
		t.Fatalf("NewActionLogger() error = %v", err)
	}
	_ = first.WriteRow([]string{"graph"})
	first.Close()

	second, err := NewActionLogger("json", dir, "consolectl", "connect", []string{"Service"})
	if err != nil {
		t.Fatalf("NewActionLogger() error = %v", err)
	}
	defer second.Close()
	if err := second.WriteRow([]string{"exchange-imap"}); err != nil {
		t.Errorf("WriteRow() on reopened JSON log error = %v", err)
	}
}

func TestNewActionLogger_UnknownFormat(t *testing.T) {
	if _, err := NewActionLogger("xml", t.TempDir(), "consolectl", "repair", nil); err == nil {
		t.Error("NewActionLogger(xml) error = nil, want error")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.input); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, false, "INFO", "json")
	log.Info("cycle complete", "healthy", true)
	if !strings.Contains(buf.String(), `"healthy":true`) {
		t.Errorf("json output = %q, want healthy attribute", buf.String())
	}

	buf.Reset()
	log = NewLogger(&buf, false, "WARN", "text")
	log.Info("hidden")
	log.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("text output = %q, want only the warning", buf.String())
	}

	buf.Reset()
	log = NewLogger(&buf, true, "ERROR", "text")
	log.Debug("verbose wins")
	if !strings.Contains(buf.String(), "verbose wins") {
		t.Errorf("verbose output = %q, want debug line", buf.String())
	}
}

func TestLogHelpersNilSafe(t *testing.T) {
	LogDebug(nil, "x")
	LogInfo(nil, "x")
	LogWarn(nil, "x")
	LogError(nil, "x")
}
