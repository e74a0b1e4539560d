package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxTokens = 1024
	DefaultBaseURL   = "http://localhost:8080"
	DefaultTimeout   = 30 * time.Second

	EnvMaxTokens = "MOONDREAM_MAX_TOKENS" // #nosec G101 -- variable name, not a credential
	EnvBaseURL   = "MOONDREAM_BASE_URL"
	EnvTimeout   = "MOONDREAM_TIMEOUT"
)

// Config holds the resolved client settings. Zero fields mean "unset" when
// merging.
type Config struct {
	MaxTokens int
	BaseURL   string
	Timeout   time.Duration
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		MaxTokens: DefaultMaxTokens,
		BaseURL:   DefaultBaseURL,
		Timeout:   DefaultTimeout,
	}
}

// Get reads every setting from the environment, falling back to defaults.
func Get() Config {
	return Config{
		MaxTokens: GetMaxTokens(),
		BaseURL:   GetBaseURL(),
		Timeout:   GetTimeout(),
	}
}

// GetMaxTokens parses MOONDREAM_MAX_TOKENS. Like parseInt, a leading integer
// is accepted ("512tokens" is 512). Anything that does not yield a positive
// value logs a warning and returns DefaultMaxTokens.
func GetMaxTokens() int {
	raw := os.Getenv(EnvMaxTokens)
	if raw == "" {
		return DefaultMaxTokens
	}
	if parsed, ok := leadingInt(raw); ok && parsed > 0 {
		return parsed
	}
	slog.Warn("Invalid MOONDREAM_MAX_TOKENS value. Using default value of 1024.",
		slog.String("value", raw))
	return DefaultMaxTokens
}

// GetBaseURL returns MOONDREAM_BASE_URL or DefaultBaseURL when unset or empty.
func GetBaseURL() string {
	if baseURL := os.Getenv(EnvBaseURL); baseURL != "" {
		return baseURL
	}
	return DefaultBaseURL
}

// GetTimeout parses MOONDREAM_TIMEOUT as a Go duration ("45s") or a plain
// number of milliseconds ("45000"). Invalid or non-positive values log a
// warning and return DefaultTimeout.
func GetTimeout() time.Duration {
	raw := strings.TrimSpace(os.Getenv(EnvTimeout))
	if raw == "" {
		return DefaultTimeout
	}
	if timeout, err := ParseTimeout(raw); err == nil {
		return timeout
	}
	slog.Warn("Invalid MOONDREAM_TIMEOUT value. Using default timeout.",
		slog.String("value", raw),
		slog.Duration("default", DefaultTimeout))
	return DefaultTimeout
}

// ParseTimeout accepts a Go duration or an integer number of milliseconds.
func ParseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	var timeout time.Duration
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		timeout = time.Duration(ms) * time.Millisecond
	} else {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid timeout %q: %w", raw, err)
		}
		timeout = parsed
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("invalid timeout %q: must be positive", raw)
	}
	return timeout, nil
}

func leadingInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	end := 0
	if end < len(raw) && (raw[end] == '+' || raw[end] == '-') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(raw[:end])
	return n, err == nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. With no paths it loads ".env"
// from the working directory; a missing default file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error loading .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("error loading env files %v: %w", paths, err)
	}
	return nil
}

// fileConfig mirrors Config with a string timeout so YAML can hold either
// "45s" or 45000.
type fileConfig struct {
	MaxTokens int    `yaml:"max_tokens"`
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout"`
}

// LoadFile reads a YAML settings file. Keys left out of the file stay zero so
// that Merge falls through to lower-precedence sources.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML settings and verifies them.
func Parse(data []byte) (Config, error) {
	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg := Config{MaxTokens: raw.MaxTokens, BaseURL: raw.BaseURL}
	if raw.Timeout != "" {
		timeout, err := ParseTimeout(raw.Timeout)
		if err != nil {
			return Config{}, err
		}
		cfg.Timeout = timeout
	}
	if err := cfg.Verify(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Verify rejects values that can never be valid. Zero fields are allowed.
func (c Config) Verify() error {
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.BaseURL != "" {
		parsed, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("base_url is invalid: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("base_url must use http or https, got %q", c.BaseURL)
		}
		if parsed.Host == "" {
			return fmt.Errorf("base_url has no host: %q", c.BaseURL)
		}
	}
	return nil
}

// Merge returns c with its zero fields filled from fallback, so
// explicit.Merge(file).Merge(Get()) gives explicit > file > env > defaults.
func (c Config) Merge(fallback Config) Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = fallback.MaxTokens
	}
	if c.BaseURL == "" {
		c.BaseURL = fallback.BaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = fallback.Timeout
	}
	return c
}
