package slogobs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/visionlang/vl/providers/observability"
)

// Observer implements observability.Provider with a slog.Logger. Spans and
// metric updates are logged at DEBUG so they disappear at the default level.
type Observer struct {
	logger  *slog.Logger
	metrics *metricsStore
}

// New creates an Observer. Without options the format and level come from
// VL_LOG_FORMAT and VL_LOG_LEVEL, defaulting to compact output at INFO.
//
//	observer := slogobs.New(
//	    slogobs.WithFormat(slogobs.FormatPretty),
//	    slogobs.WithLevel(slog.LevelDebug),
//	)
func New(opts ...Option) *Observer {
	cfg := applyOptions(opts...)

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(NewHandler(&HandlerOptions{
			Format: cfg.format,
			Level:  cfg.level,
			Output: cfg.output,
			Colors: cfg.colors,
		}))
	}

	return &Observer{
		logger:  logger,
		metrics: newMetricsStore(),
	}
}

var _ observability.Provider = (*Observer)(nil)

// Logger exposes the underlying slog.Logger.
func (o *Observer) Logger() *slog.Logger {
	return o.logger
}

// --- TRACING ---

// StartSpan logs the span start and returns a context carrying the new span.
func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	span := &slogSpan{
		name:      name,
		startTime: time.Now(),
		logger:    o.logger,
		attrs:     append([]observability.Attribute(nil), attrs...),
	}

	o.logger.LogAttrs(ctx, slog.LevelDebug, "span started",
		append([]slog.Attr{slog.String("span", name)}, toSlog(attrs)...)...)

	return observability.ContextWithSpan(ctx, span), span
}

type slogSpan struct {
	name      string
	startTime time.Time
	logger    *slog.Logger
	ended     atomic.Bool

	mu    sync.Mutex
	attrs []observability.Attribute
	level slog.Level
}

// End logs the span with its duration and every attribute set on it. A span
// whose status is StatusError is logged at WARN. Only the first call logs.
func (s *slogSpan) End() {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	attrs := toSlog(s.attrs)
	level := s.level
	s.mu.Unlock()

	logAttrs := append([]slog.Attr{
		slog.String("span", s.name),
		slog.Duration(observability.AttrDuration, time.Since(s.startTime)),
	}, attrs...)
	if level < slog.LevelDebug {
		level = slog.LevelDebug
	}
	s.logger.LogAttrs(context.Background(), level, "span ended", logAttrs...)
}

func (s *slogSpan) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *slogSpan) SetStatus(code observability.StatusCode, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attrs = append(s.attrs, observability.String(observability.AttrStatus, code.String()))
	if description != "" {
		s.attrs = append(s.attrs, observability.String(observability.AttrStatusDescription, description))
	}
	if code == observability.StatusError {
		s.level = slog.LevelWarn
	}
}

func (s *slogSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, observability.Error(err))
	s.mu.Unlock()

	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "span error",
		slog.String("span", s.name),
		slog.String(observability.AttrError, err.Error()),
	)
}

func (s *slogSpan) AddEvent(name string, attrs ...observability.Attribute) {
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "span event",
		append([]slog.Attr{slog.String("span", s.name), slog.String("event", name)}, toSlog(attrs)...)...)
}

// --- METRICS ---

// Counter returns the counter registered under name, creating it on first use.
func (o *Observer) Counter(name string) observability.Counter {
	return o.metrics.counter(name, o.logger)
}

// Histogram returns the histogram registered under name, creating it on first use.
func (o *Observer) Histogram(name string) observability.Histogram {
	return o.metrics.histogram(name, o.logger)
}

type metricsStore struct {
	mu         sync.RWMutex
	counters   map[string]*slogCounter
	histograms map[string]*slogHistogram
}

func newMetricsStore() *metricsStore {
	return &metricsStore{
		counters:   make(map[string]*slogCounter),
		histograms: make(map[string]*slogHistogram),
	}
}

func (m *metricsStore) counter(name string, logger *slog.Logger) *slogCounter {
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()
	if exists {
		return counter
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if counter, exists := m.counters[name]; exists {
		return counter
	}
	counter = &slogCounter{name: name, logger: logger}
	m.counters[name] = counter
	return counter
}

func (m *metricsStore) histogram(name string, logger *slog.Logger) *slogHistogram {
	m.mu.RLock()
	histogram, exists := m.histograms[name]
	m.mu.RUnlock()
	if exists {
		return histogram
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if histogram, exists := m.histograms[name]; exists {
		return histogram
	}
	histogram = &slogHistogram{name: name, logger: logger}
	m.histograms[name] = histogram
	return histogram
}

type slogCounter struct {
	name   string
	logger *slog.Logger
	value  atomic.Int64
}

// Add increments the running total and logs it at DEBUG.
func (c *slogCounter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	total := c.value.Add(value)
	c.logger.LogAttrs(ctx, slog.LevelDebug, "counter",
		append([]slog.Attr{
			slog.String("metric", c.name),
			slog.Int64("value", total),
			slog.Int64("delta", value),
		}, toSlog(attrs)...)...)
}

// Value returns the running total.
func (c *slogCounter) Value() int64 {
	return c.value.Load()
}

type slogHistogram struct {
	name   string
	logger *slog.Logger
	mu     sync.Mutex
	count  int64
	sum    float64
}

// Record logs the observation at DEBUG together with the running count and sum.
func (h *slogHistogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.mu.Lock()
	h.count++
	h.sum += value
	count, sum := h.count, h.sum
	h.mu.Unlock()

	h.logger.LogAttrs(ctx, slog.LevelDebug, "histogram",
		append([]slog.Attr{
			slog.String("metric", h.name),
			slog.Float64("value", value),
			slog.Int64("count", count),
			slog.Float64("sum", sum),
		}, toSlog(attrs)...)...)
}

// --- LOGGING ---

// Trace logs at LevelTrace, which is filtered out unless VL_LOG_LEVEL=TRACE.
func (o *Observer) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.LogAttrs(ctx, LevelTrace, msg, toSlog(attrs)...)
}

// Debug logs at debug level.
func (o *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.LogAttrs(ctx, slog.LevelDebug, msg, toSlog(attrs)...)
}

// Info logs at info level.
func (o *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.LogAttrs(ctx, slog.LevelInfo, msg, toSlog(attrs)...)
}

// Warn logs at warn level.
func (o *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.LogAttrs(ctx, slog.LevelWarn, msg, toSlog(attrs)...)
}

// Error logs at error level.
func (o *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.LogAttrs(ctx, slog.LevelError, msg, toSlog(attrs)...)
}

func toSlog(attrs []observability.Attribute) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, slog.Any(attr.Key, attr.Value))
	}
	return out
}
