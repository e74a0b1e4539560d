package slogobs

import (
	"os"
	"strings"
)

// Format represents the output format for logs.
type Format string

const (
	// FormatCompact is one line per record with logfmt-style attributes.
	// Example: 10:40:35.120 DEBUG span event span=vl.caption event=http.request.prepared
	FormatCompact Format = "compact"

	// FormatPretty is one header line per record followed by indented attributes.
	// Example:
	//   10:40:35.120 DEBUG span event
	//       event = http.request.prepared
	//       span  = vl.caption
	FormatPretty Format = "pretty"

	// FormatJSON is one JSON object per record, for log aggregation.
	FormatJSON Format = "json"
)

// ParseFormat maps a case-insensitive name onto a Format. Unknown names fall
// back to FormatCompact.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPretty:
		return FormatPretty
	case FormatJSON:
		return FormatJSON
	default:
		return FormatCompact
	}
}

// GetFormatFromEnv reads VL_LOG_FORMAT, then LOG_FORMAT. Defaults to compact.
func GetFormatFromEnv() Format {
	for _, key := range []string{"VL_LOG_FORMAT", "LOG_FORMAT"} {
		if format := os.Getenv(key); format != "" {
			return ParseFormat(format)
		}
	}
	return FormatCompact
}

// String returns the string representation of the Format.
func (f Format) String() string {
	return string(f)
}
