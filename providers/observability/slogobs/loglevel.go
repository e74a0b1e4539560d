package slogobs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below slog.LevelDebug and is used by Observer.Trace.
const LevelTrace = slog.LevelDebug - 4

// GetLogLevelFromEnv reads VL_LOG_LEVEL, then LOG_LEVEL. Defaults to INFO.
func GetLogLevelFromEnv() slog.Level {
	level := os.Getenv("VL_LOG_LEVEL")
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		return slog.LevelInfo
	}
	return ParseLogLevel(level)
}

// ParseLogLevel parses TRACE, DEBUG, INFO, WARN, WARNING or ERROR
// (case-insensitive). Unknown values yield INFO and a warning on stderr.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "INFO", "":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "Warning: Unknown log level '%s', using INFO\n", level)
		return slog.LevelInfo
	}
}

// levelString buckets any slog.Level into one of the five names we print.
func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "TRACE"
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}
