package vl

import (
	"net/http"
	"strings"
	"time"

	"github.com/visionlang/vl/core/config"
	"github.com/visionlang/vl/providers/observability"
)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the service root, e.g. "http://localhost:8080". A trailing
// slash is ignored. An empty value keeps the configured default.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithTimeout bounds every request made by the client. Zero or a negative
// value keeps DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxTokens sets the default output token limit. Values <= 0 are ignored.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Client) {
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}

// WithHTTPClient replaces http.DefaultClient. Its own Timeout, if any, still
// applies on top of the client timeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithObserver reports spans, metrics and logs for every call. Without it the
// client looks for an observer in each call's context.
func WithObserver(observer observability.Provider) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithConfig applies the non-zero fields of cfg, typically the result of
// config.LoadFile.
func WithConfig(cfg config.Config) Option {
	return func(c *Client) {
		WithBaseURL(cfg.BaseURL)(c)
		WithTimeout(cfg.Timeout)(c)
		WithMaxTokens(cfg.MaxTokens)(c)
	}
}

// WithRequestIDGenerator overrides the X-Request-ID generator.
func WithRequestIDGenerator(generate func() string) Option {
	return func(c *Client) {
		if generate != nil {
			c.newRequestID = generate
		}
	}
}

func normalizeBaseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}
