package vl

import "context"

// Task names the two inference operations.
type Task string

const (
	TaskCaption Task = "caption"
	TaskQuery   Task = "query"
)

// Image is anything that can be turned into the base64 payload the service
// expects. The client never inspects the result.
type Image interface {
	Encode(ctx context.Context) (EncodedImage, error)
}

// EncodedImage is an already encoded image, usually a data URI such as
// "data:image/jpeg;base64,...". It encodes to itself.
type EncodedImage struct {
	Base64 string
}

// Encode returns img unchanged.
func (img EncodedImage) Encode(context.Context) (EncodedImage, error) {
	return img, nil
}

// CaptionLength is the caption size hint sent with caption requests.
type CaptionLength string

const (
	CaptionShort  CaptionLength = "short"
	CaptionNormal CaptionLength = "normal"
	CaptionLong   CaptionLength = "long"
)

// SamplingSettings are per-call generation settings. A zero MaxTokens means
// the client default.
type SamplingSettings struct {
	MaxTokens int
}

// CaptionOutput holds either the complete caption or, for streaming calls, a
// stream of caption text. Exactly one is set.
type CaptionOutput struct {
	Caption string
	Stream  *TextStream
}

// IsStream reports whether the output is a stream.
func (o *CaptionOutput) IsStream() bool {
	return o.Stream != nil
}

// QueryOutput holds either the complete answer or a stream of answer text.
type QueryOutput struct {
	Answer string
	Stream *TextStream
}

// IsStream reports whether the output is a stream.
func (o *QueryOutput) IsStream() bool {
	return o.Stream != nil
}

type captionRequest struct {
	Image     string        `json:"image"`
	Length    CaptionLength `json:"length"`
	Stream    bool          `json:"stream"`
	MaxTokens int           `json:"max_tokens"`
}

type queryRequest struct {
	Image     string `json:"image"`
	Question  string `json:"question"`
	Stream    bool   `json:"stream"`
	MaxTokens int    `json:"max_tokens"`
}

type errorPayload struct {
	Message string `json:"message"`
}
