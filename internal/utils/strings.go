package utils

import (
	"fmt"
	"mime"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const (
	// DefaultMaxStringLength is the default maximum length for truncated strings
	DefaultMaxStringLength = 500
)

// TruncateString shortens s to at most maxLen bytes, appending a suffix that
// records the original total length so callers know data was omitted. If
// maxLen is zero or negative, [DefaultMaxStringLength] is used instead.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}
	if len(s) <= maxLen {
		return s
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", s[:maxLen], len(s))
}

// BodyPreview renders an error payload for logs and error values. Proxies in
// front of inference servers tend to answer failures with HTML pages, which
// are converted to Markdown so the preview stays readable; anything else is
// used as-is. The result is trimmed and truncated to DefaultMaxStringLength.
func BodyPreview(contentType string, body []byte) string {
	text := string(body)

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && mediaType == "text/html" {
		if markdown, convErr := htmltomarkdown.ConvertString(text); convErr == nil {
			text = markdown
		}
	}

	return TruncateString(strings.TrimSpace(text), DefaultMaxStringLength)
}
