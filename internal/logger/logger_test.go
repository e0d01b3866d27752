package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warn", WarnLevel},
		{"error", ErrorLevel},
		{"verbose", InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextFormatFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("warn", "text", &buf)
	t.Cleanup(func() { defaultLogger = nil })

	Info("hidden %d", 1)
	Warn("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Errorf("expected warn message, got %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("debug", "json", &buf)
	t.Cleanup(func() { defaultLogger = nil })

	Debug("city %s summarized", "Paris")

	var line jsonLine
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("output is not a JSON line: %v (%q)", err, buf.String())
	}
	if line.Level != "debug" || line.Msg != "city Paris summarized" {
		t.Errorf("unexpected line: %+v", line)
	}
	if line.Time == "" {
		t.Error("expected a timestamp")
	}
}

func TestUninitializedLoggerIsSilent(t *testing.T) {
	defaultLogger = nil
	Info("no logger configured")
	Error("still fine")
}
