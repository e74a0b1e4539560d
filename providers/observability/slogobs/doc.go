// Package slogobs implements observability.Provider on top of log/slog.
//
// Spans, counters, and histograms are rendered as debug-level log records, so
// a single [Observer] is enough to follow a caption or query call end to end
// without any external collector. The output format (compact, pretty, json)
// and minimum level come from [WithFormat] and [WithLevel], or from the
// VL_LOG_FORMAT and VL_LOG_LEVEL environment variables when no option is given.
package slogobs
