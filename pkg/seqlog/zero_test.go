package seqlog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestZeroDefaultLevelIsInfo(t *testing.T) {
	level := NewZeroLogger("").GetLevel()
	if level != zerolog.InfoLevel {
		t.Fatalf("expected default log level to be Info, got: %v", level)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetOutputKeepsLevel(t *testing.T) {
	prev := Zero
	defer func() { Zero = prev }()

	var buf bytes.Buffer
	_ = UpdateZeroLogLevel("error")
	SetOutput(&buf)

	Zero.Info().Msg("hidden")
	Zero.Error().Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message leaked through error level: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("expected error message in output, got: %s", out)
	}
}

func TestReloadLoggerWritesToFile(t *testing.T) {
	prev := Zero
	defer func() { Zero = prev }()

	path := filepath.Join(t.TempDir(), "seq.log")
	ReloadLogger(path)
	Zero.Warn().Str("sequence", "s1").Msg("file message")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "file message") {
		t.Fatalf("expected message in log file, got: %s", data)
	}
}
