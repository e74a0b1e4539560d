package slogobs

import (
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"TRACE", LevelTrace},
		{"debug", slog.LevelDebug},
		{"Info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"  DEBUG  ", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetLogLevelFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		vlLevel  string
		logLevel string
		expected slog.Level
	}{
		{name: "VL_LOG_LEVEL takes precedence", vlLevel: "DEBUG", logLevel: "ERROR", expected: slog.LevelDebug},
		{name: "fallback to LOG_LEVEL", logLevel: "WARN", expected: slog.LevelWarn},
		{name: "default INFO", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VL_LOG_LEVEL", tt.vlLevel)
			t.Setenv("LOG_LEVEL", tt.logLevel)

			if got := GetLogLevelFromEnv(); got != tt.expected {
				t.Errorf("GetLogLevelFromEnv() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    slog.Level
		expected string
	}{
		{LevelTrace, "TRACE"},
		{slog.LevelDebug, "DEBUG"},
		{slog.LevelInfo + 1, "INFO"},
		{slog.LevelWarn, "WARN"},
		{slog.LevelError + 4, "ERROR"},
	}

	for _, tt := range tests {
		if got := levelString(tt.level); got != tt.expected {
			t.Errorf("levelString(%d) = %q, want %q", tt.level, got, tt.expected)
		}
	}
}
