package zerologobs

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Option configures an Observer.
type Option func(*config)

// FileOptions controls the rotating log file written through lumberjack.
type FileOptions struct {
	Filename   string
	MaxSizeMB  int // megabytes before rotation
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type config struct {
	level   zerolog.Level
	output  io.Writer
	console bool
	file    *FileOptions
	logger  *zerolog.Logger
}

// WithLevel sets the minimum level.
func WithLevel(level zerolog.Level) Option {
	return func(c *config) { c.level = level }
}

// WithOutput sets the writer for JSON records. Defaults to os.Stderr.
func WithOutput(output io.Writer) Option {
	return func(c *config) { c.output = output }
}

// WithConsole renders records to the output with zerolog's human-readable
// ConsoleWriter instead of JSON.
func WithConsole(enabled bool) Option {
	return func(c *config) { c.console = enabled }
}

// WithFile also writes JSON records to a rotating file.
func WithFile(file FileOptions) Option {
	return func(c *config) { c.file = &file }
}

// WithLogger uses an existing zerolog.Logger and ignores the other options.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) { c.logger = &logger }
}

func defaultConfig() *config {
	return &config{
		level:  LevelFromEnv(),
		output: os.Stderr,
	}
}

// LevelFromEnv reads VL_LOG_LEVEL, then LOG_LEVEL. Defaults to info.
func LevelFromEnv() zerolog.Level {
	level := os.Getenv("VL_LOG_LEVEL")
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	return ParseLevel(level)
}

// ParseLevel maps a level name onto zerolog.Level. Unknown names yield info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
