// Package promobs exposes the client's counters and histograms as Prometheus
// collectors. It only implements observability.Metrics; pair it with a
// logging backend through observability.Compose.
package promobs

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/visionlang/vl/providers/observability"
)

// Labels attached to every collector. Attributes with these keys become label
// values; a missing attribute yields an empty label.
var Labels = []Label{
	{Name: "task", Attribute: observability.AttrTask},
	{Name: "outcome", Attribute: observability.AttrOutcome},
	{Name: "stream", Attribute: observability.AttrTaskStream},
}

// Label maps an observability attribute onto a Prometheus label.
type Label struct {
	Name      string
	Attribute string
}

// DefaultBuckets suits request latencies against a local inference server.
var DefaultBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60}

// Metrics implements observability.Metrics with Prometheus vectors.
type Metrics struct {
	factory   promauto.Factory
	namespace string
	buckets   []float64

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

var _ observability.Metrics = (*Metrics)(nil)

// Option configures Metrics.
type Option func(*Metrics)

// WithNamespace prefixes every metric name, e.g. "captioner".
func WithNamespace(namespace string) Option {
	return func(m *Metrics) { m.namespace = namespace }
}

// WithBuckets overrides DefaultBuckets for every histogram.
func WithBuckets(buckets []float64) Option {
	return func(m *Metrics) { m.buckets = buckets }
}

// New registers collectors on registerer as metrics are first used. A nil
// registerer means prometheus.DefaultRegisterer.
func New(registerer prometheus.Registerer, opts ...Option) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		factory:    promauto.With(registerer),
		buckets:    DefaultBuckets,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Counter returns a counter backed by a CounterVec named after name with dots
// replaced by underscores ("vl.requests.total" becomes "vl_requests_total").
func (m *Metrics) Counter(name string) observability.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	vec, ok := m.counters[name]
	if !ok {
		vec = m.factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      MetricName(name),
			Help:      fmt.Sprintf("Counter %s.", name),
		}, labelNames())
		m.counters[name] = vec
	}
	return counter{vec: vec}
}

// Histogram returns a histogram backed by a HistogramVec; see Counter for naming.
func (m *Metrics) Histogram(name string) observability.Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	vec, ok := m.histograms[name]
	if !ok {
		vec = m.factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      MetricName(name),
			Help:      fmt.Sprintf("Histogram %s.", name),
			Buckets:   m.buckets,
		}, labelNames())
		m.histograms[name] = vec
	}
	return histogram{vec: vec}
}

// MetricName converts a dotted observability name into a Prometheus name.
func MetricName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			return r
		default:
			return '_'
		}
	}, name)
}

type counter struct {
	vec *prometheus.CounterVec
}

// Add ignores negative values, which a Prometheus counter would reject with a panic.
func (c counter) Add(_ context.Context, value int64, attrs ...observability.Attribute) {
	if value < 0 {
		return
	}
	c.vec.WithLabelValues(labelValues(attrs)...).Add(float64(value))
}

type histogram struct {
	vec *prometheus.HistogramVec
}

func (h histogram) Record(_ context.Context, value float64, attrs ...observability.Attribute) {
	h.vec.WithLabelValues(labelValues(attrs)...).Observe(value)
}

func labelNames() []string {
	names := make([]string, len(Labels))
	for i, label := range Labels {
		names[i] = label.Name
	}
	return names
}

func labelValues(attrs []observability.Attribute) []string {
	values := make([]string, len(Labels))
	for i, label := range Labels {
		if value, ok := observability.Lookup(attrs, label.Attribute); ok {
			values[i] = fmt.Sprint(value)
		}
	}
	return values
}
