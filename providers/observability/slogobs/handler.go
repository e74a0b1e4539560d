package slogobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const timeLayout = "15:04:05.000"

// Handler is a slog.Handler rendering records in one of the [Format]s.
// Attribute keys are sorted so output is stable across runs.
type Handler struct {
	format Format
	level  slog.Leveler
	output io.Writer
	colors bool
	mu     *sync.Mutex
	attrs  []slog.Attr
	prefix string
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Format Format
	Level  slog.Leveler
	// Output defaults to os.Stderr.
	Output io.Writer
	// Colors is only honored by the compact and pretty formats.
	Colors bool
}

// NewHandler creates a Handler. Colors are switched on automatically when the
// output is a terminal and the format is not JSON.
func NewHandler(opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	handler := &Handler{
		format: opts.Format,
		level:  opts.Level,
		output: opts.Output,
		colors: opts.Colors,
		mu:     &sync.Mutex{},
	}
	if handler.output == nil {
		handler.output = os.Stderr
	}
	if handler.format == "" {
		handler.format = FormatCompact
	}
	if handler.level == nil {
		handler.level = slog.LevelInfo
	}
	if !handler.colors && handler.format != FormatJSON {
		if f, ok := handler.output.(*os.File); ok {
			handler.colors = isTerminal(f)
		}
	}
	return handler
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a log record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	fields := h.fields(r)

	var line []byte
	var err error
	switch h.format {
	case FormatJSON:
		line, err = h.renderJSON(r, fields)
	case FormatPretty:
		line = h.renderPretty(r, fields)
	default:
		line = h.renderCompact(r, fields)
	}
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.output.Write(line)
	return err
}

// WithAttrs returns a Handler that adds attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = slices.Clone(h.attrs)
	for _, attr := range attrs {
		attr.Key = h.prefix + attr.Key
		clone.attrs = append(clone.attrs, attr)
	}
	return &clone
}

// WithGroup returns a Handler whose subsequent keys are qualified by name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

type field struct {
	key   string
	value any
}

// fields flattens handler and record attributes, resolving groups into dotted
// keys, and sorts them by key.
func (h *Handler) fields(r slog.Record) []field {
	out := make([]field, 0, len(h.attrs)+r.NumAttrs())
	for _, attr := range h.attrs {
		out = appendAttr(out, "", attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		out = appendAttr(out, h.prefix, attr)
		return true
	})
	slices.SortStableFunc(out, func(a, b field) int { return strings.Compare(a.key, b.key) })
	return out
}

func appendAttr(out []field, prefix string, attr slog.Attr) []field {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return out
	}
	if attr.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix += attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			out = appendAttr(out, groupPrefix, member)
		}
		return out
	}
	return append(out, field{key: prefix + attr.Key, value: attr.Value.Any()})
}

func (h *Handler) header(r slog.Record) []byte {
	buf := make([]byte, 0, 128)
	buf = r.Time.AppendFormat(buf, timeLayout)
	buf = append(buf, ' ')
	level := fmt.Sprintf("%-5s", levelString(r.Level))
	if h.colors {
		buf = append(buf, colorForLevel(r.Level)...)
		buf = append(buf, level...)
		buf = append(buf, colorReset...)
	} else {
		buf = append(buf, level...)
	}
	buf = append(buf, ' ')
	return append(buf, r.Message...)
}

func (h *Handler) renderCompact(r slog.Record, fields []field) []byte {
	buf := h.header(r)
	for _, f := range fields {
		buf = append(buf, ' ')
		buf = append(buf, f.key...)
		buf = append(buf, '=')
		buf = appendValue(buf, f.value)
	}
	return append(buf, '\n')
}

func (h *Handler) renderPretty(r slog.Record, fields []field) []byte {
	buf := h.header(r)
	buf = append(buf, '\n')

	width := 0
	for _, f := range fields {
		width = max(width, len(f.key))
	}
	for _, f := range fields {
		buf = append(buf, "    "...)
		buf = append(buf, fmt.Sprintf("%-*s", width, f.key)...)
		buf = append(buf, " = "...)
		buf = appendValue(buf, f.value)
		buf = append(buf, '\n')
	}
	return buf
}

func (h *Handler) renderJSON(r slog.Record, fields []field) ([]byte, error) {
	data := make(map[string]any, len(fields)+3)
	for _, f := range fields {
		data[f.key] = jsonValue(f.value)
	}
	data["time"] = r.Time.Format(time.RFC3339Nano)
	data["level"] = levelString(r.Level)
	data["msg"] = r.Message

	line, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("slogobs: encoding record: %w", err)
	}
	return append(line, '\n'), nil
}

// appendValue writes v in logfmt style, quoting strings that contain spaces,
// quotes or equal signs.
func appendValue(buf []byte, v any) []byte {
	var s string
	switch value := v.(type) {
	case string:
		s = value
	case time.Duration:
		s = value.String()
	case error:
		s = value.Error()
	case fmt.Stringer:
		s = value.String()
	default:
		s = fmt.Sprint(value)
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}

func jsonValue(v any) any {
	switch value := v.(type) {
	case time.Duration:
		return value.String()
	case error:
		return value.Error()
	default:
		return value
	}
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

func colorForLevel(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return colorGray
	case level < slog.LevelInfo:
		return colorBlue
	case level < slog.LevelWarn:
		return colorGreen
	case level < slog.LevelError:
		return colorYellow
	default:
		return colorRed
	}
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
