package slogobs

import (
	"io"
	"log/slog"
	"os"
)

// Option is a functional option for configuring the Observer.
type Option func(*config)

type config struct {
	format Format
	level  slog.Level
	output io.Writer
	colors bool
	logger *slog.Logger // bypasses the custom handler when set
}

// WithFormat sets the log output format.
func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithLevel sets the minimum log level.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithOutput sets the writer records go to. Defaults to os.Stderr.
func WithOutput(output io.Writer) Option {
	return func(c *config) {
		c.output = output
	}
}

// WithColors enables ANSI level colors for the compact and pretty formats.
func WithColors(enabled bool) Option {
	return func(c *config) {
		c.colors = enabled
	}
}

// WithLogger routes everything through an existing logger. It takes
// precedence over the format, level, output and color options.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func defaultConfig() *config {
	return &config{
		format: GetFormatFromEnv(),
		level:  GetLogLevelFromEnv(),
		output: os.Stderr,
	}
}

func applyOptions(opts ...Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
