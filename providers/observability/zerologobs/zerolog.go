// Package zerologobs implements observability.Provider with zerolog, with
// optional size-based file rotation through lumberjack.
package zerologobs

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"

	"github.com/visionlang/vl/providers/observability"
)

// Observer implements observability.Provider on a zerolog.Logger.
type Observer struct {
	logger zerolog.Logger
	file   *lumberjack.Logger

	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]*histogram
}

var _ observability.Provider = (*Observer)(nil)

// New creates an Observer. Without options it writes JSON to stderr at the
// level named by VL_LOG_LEVEL.
func New(opts ...Option) *Observer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	o := &Observer{
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
	}

	if cfg.logger != nil {
		o.logger = *cfg.logger
		return o
	}

	var out io.Writer = cfg.output
	if cfg.console {
		out = zerolog.ConsoleWriter{Out: cfg.output, TimeFormat: "15:04:05.000", NoColor: true}
	}
	writers := []io.Writer{out}
	if cfg.file != nil {
		o.file = &lumberjack.Logger{
			Filename:   cfg.file.Filename,
			MaxSize:    cfg.file.MaxSizeMB,
			MaxBackups: cfg.file.MaxBackups,
			MaxAge:     cfg.file.MaxAgeDays,
			Compress:   cfg.file.Compress,
		}
		writers = append(writers, o.file)
	}

	o.logger = zerolog.New(io.MultiWriter(writers...)).Level(cfg.level).With().Timestamp().Logger()
	return o
}

// Logger returns the underlying zerolog.Logger.
func (o *Observer) Logger() zerolog.Logger {
	return o.logger
}

// Close closes the rotating log file, if any.
func (o *Observer) Close() error {
	if o.file == nil {
		return nil
	}
	return o.file.Close()
}

// --- TRACING ---

// StartSpan logs the span start at debug level and returns a context carrying
// the span.
func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	span := &zerologSpan{
		name:   name,
		start:  time.Now(),
		logger: o.logger,
		attrs:  append([]observability.Attribute(nil), attrs...),
	}
	withAttrs(o.logger.Debug(), attrs).Str("span", name).Msg("span started")
	return observability.ContextWithSpan(ctx, span), span
}

type zerologSpan struct {
	name   string
	start  time.Time
	logger zerolog.Logger
	ended  atomic.Bool

	mu     sync.Mutex
	attrs  []observability.Attribute
	failed bool
}

func (s *zerologSpan) End() {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	attrs := s.attrs
	failed := s.failed
	s.mu.Unlock()

	event := s.logger.Debug()
	if failed {
		event = s.logger.Warn()
	}
	withAttrs(event, attrs).
		Str("span", s.name).
		Dur(observability.AttrDuration, time.Since(s.start)).
		Msg("span ended")
}

func (s *zerologSpan) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *zerologSpan) SetStatus(code observability.StatusCode, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, observability.String(observability.AttrStatus, code.String()))
	if description != "" {
		s.attrs = append(s.attrs, observability.String(observability.AttrStatusDescription, description))
	}
	s.failed = code == observability.StatusError
}

func (s *zerologSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, observability.Error(err))
	s.mu.Unlock()
}

func (s *zerologSpan) AddEvent(name string, attrs ...observability.Attribute) {
	withAttrs(s.logger.Debug(), attrs).Str("span", s.name).Str("event", name).Msg("span event")
}

// --- METRICS ---

// Counter returns a counter that logs every increment at debug level.
func (o *Observer) Counter(name string) observability.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.counters[name]
	if !ok {
		c = &counter{name: name, logger: o.logger}
		o.counters[name] = c
	}
	return c
}

// Histogram returns a histogram that logs every recorded value at debug level.
func (o *Observer) Histogram(name string) observability.Histogram {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.histograms[name]
	if !ok {
		h = &histogram{name: name, logger: o.logger}
		o.histograms[name] = h
	}
	return h
}

type counter struct {
	name   string
	logger zerolog.Logger
	value  atomic.Int64
}

func (c *counter) Add(_ context.Context, value int64, attrs ...observability.Attribute) {
	total := c.value.Add(value)
	withAttrs(c.logger.Debug(), attrs).
		Str("metric", c.name).
		Int64("delta", value).
		Int64("value", total).
		Msg("counter")
}

type histogram struct {
	name   string
	logger zerolog.Logger
}

func (h *histogram) Record(_ context.Context, value float64, attrs ...observability.Attribute) {
	withAttrs(h.logger.Debug(), attrs).Str("metric", h.name).Float64("value", value).Msg("histogram")
}

// --- LOGGING ---

// Trace logs at zerolog's trace level.
func (o *Observer) Trace(_ context.Context, msg string, attrs ...observability.Attribute) {
	withAttrs(o.logger.Trace(), attrs).Msg(msg)
}

// Debug logs at debug level.
func (o *Observer) Debug(_ context.Context, msg string, attrs ...observability.Attribute) {
	withAttrs(o.logger.Debug(), attrs).Msg(msg)
}

// Info logs at info level.
func (o *Observer) Info(_ context.Context, msg string, attrs ...observability.Attribute) {
	withAttrs(o.logger.Info(), attrs).Msg(msg)
}

// Warn logs at warn level.
func (o *Observer) Warn(_ context.Context, msg string, attrs ...observability.Attribute) {
	withAttrs(o.logger.Warn(), attrs).Msg(msg)
}

// Error logs at error level.
func (o *Observer) Error(_ context.Context, msg string, attrs ...observability.Attribute) {
	withAttrs(o.logger.Error(), attrs).Msg(msg)
}

// withAttrs copies attributes onto a zerolog event. Disabled events are nil
// and zerolog's methods are no-ops on them.
func withAttrs(event *zerolog.Event, attrs []observability.Attribute) *zerolog.Event {
	for _, attr := range attrs {
		switch value := attr.Value.(type) {
		case string:
			event = event.Str(attr.Key, value)
		case int:
			event = event.Int(attr.Key, value)
		case int64:
			event = event.Int64(attr.Key, value)
		case float64:
			event = event.Float64(attr.Key, value)
		case bool:
			event = event.Bool(attr.Key, value)
		case time.Duration:
			event = event.Dur(attr.Key, value)
		case error:
			event = event.AnErr(attr.Key, value)
		default:
			event = event.Interface(attr.Key, value)
		}
	}
	return event
}
