package logging

import (
	"log/slog"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewWithoutFile(t *testing.T) {
	logger, closer := New(Config{Level: "info", Format: "text"})
	if logger == nil {
		t.Fatal("expected logger")
	}
	if closer != nil {
		t.Error("expected nil closer without file path")
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coda.log")
	logger, closer := New(Config{Level: "debug", Format: "json", FilePath: path})
	if logger == nil {
		t.Fatal("expected logger")
	}
	if closer == nil {
		t.Fatal("expected closer with file path")
	}
	logger.Info("hello")
	if err := closer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestValidLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(lvl) {
			t.Errorf("ValidLevel(%q) = false", lvl)
		}
	}
	if ValidLevel("verbose") {
		t.Error("ValidLevel(verbose) = true")
	}
}
