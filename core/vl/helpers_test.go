package vl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/visionlang/vl/core/config"
	"github.com/visionlang/vl/providers/observability"
)

const testImage = "data:image/jpeg;base64,/9j/4AAQSkZJRg=="

// newTestClient starts server with handler and returns a client pointed at
// it. MOONDREAM_* variables are cleared so defaults are predictable.
//
// The request body is read in full before handler runs and replaced with an
// in-memory copy. net/http only notices a client disconnect once the body
// has been consumed, so handlers that wait on r.Context() would otherwise
// never return and server.Close would block.
func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	t.Setenv(config.EnvMaxTokens, "")
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvTimeout, "")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading request body: %v", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	return New(append([]Option{WithBaseURL(server.URL)}, opts...)...), server
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func decodeRequest(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Errorf("request body is not JSON: %v", err)
	}
	return body
}

// writeChunks streams parts with a flush after each so they leave the server
// as separate writes.
func writeChunks(w http.ResponseWriter, parts ...string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	flusher, _ := w.(http.Flusher)
	for _, part := range parts {
		_, _ = w.Write([]byte(part))
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// recordingProvider captures everything the client reports.
type recordingProvider struct {
	mu       sync.Mutex
	spans    []*recordingSpan
	counters map[string][]recordedValue
	logs     []string
}

type recordedValue struct {
	value float64
	attrs []observability.Attribute
}

type recordingSpan struct {
	mu     sync.Mutex
	name   string
	attrs  []observability.Attribute
	events []string
	status observability.StatusCode
	errs   []error
	ended  int
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{counters: map[string][]recordedValue{}}
}

func (p *recordingProvider) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	span := &recordingSpan{name: name, attrs: attrs}
	p.mu.Lock()
	p.spans = append(p.spans, span)
	p.mu.Unlock()
	return observability.ContextWithSpan(ctx, span), span
}

func (p *recordingProvider) Counter(name string) observability.Counter {
	return recordingInstrument{provider: p, name: name}
}

func (p *recordingProvider) Histogram(name string) observability.Histogram {
	return recordingInstrument{provider: p, name: name}
}

func (p *recordingProvider) log(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs = append(p.logs, msg)
}

func (p *recordingProvider) Trace(_ context.Context, msg string, _ ...observability.Attribute) { p.log(msg) }
func (p *recordingProvider) Debug(_ context.Context, msg string, _ ...observability.Attribute) { p.log(msg) }
func (p *recordingProvider) Info(_ context.Context, msg string, _ ...observability.Attribute)  { p.log(msg) }
func (p *recordingProvider) Warn(_ context.Context, msg string, _ ...observability.Attribute)  { p.log(msg) }
func (p *recordingProvider) Error(_ context.Context, msg string, _ ...observability.Attribute) { p.log(msg) }

func (p *recordingProvider) values(name string) []recordedValue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedValue(nil), p.counters[name]...)
}

func (p *recordingProvider) span(t *testing.T) *recordingSpan {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.spans) != 1 {
		t.Fatalf("expected exactly one span, got %d", len(p.spans))
	}
	return p.spans[0]
}

type recordingInstrument struct {
	provider *recordingProvider
	name     string
}

func (i recordingInstrument) Add(_ context.Context, value int64, attrs ...observability.Attribute) {
	i.Record(context.Background(), float64(value), attrs...)
}

func (i recordingInstrument) Record(_ context.Context, value float64, attrs ...observability.Attribute) {
	i.provider.mu.Lock()
	defer i.provider.mu.Unlock()
	i.provider.counters[i.name] = append(i.provider.counters[i.name], recordedValue{value: value, attrs: attrs})
}

func (s *recordingSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended++
}

func (s *recordingSpan) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *recordingSpan) SetStatus(code observability.StatusCode, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

func (s *recordingSpan) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSpan) AddEvent(name string, _ ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, name)
}

func (s *recordingSpan) snapshot() (events []string, status observability.StatusCode, ended int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...), s.status, s.ended
}
