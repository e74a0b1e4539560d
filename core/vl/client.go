package vl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/visionlang/vl/core/config"
	"github.com/visionlang/vl/internal/utils"
	"github.com/visionlang/vl/providers/observability"
)

// DefaultTimeout bounds a request when no timeout is configured.
const DefaultTimeout = config.DefaultTimeout

const requestIDHeader = "X-Request-ID"

// Client calls a vision-language inference service. It is safe for concurrent
// use and immutable once built.
type Client struct {
	baseURL      string
	timeout      time.Duration
	maxTokens    int
	httpClient   *http.Client
	observer     observability.Provider
	newRequestID func() string
}

// New builds a Client. Defaults come from the MOONDREAM_* environment
// variables (see package config) and are overridden by opts.
func New(opts ...Option) *Client {
	env := config.Get()
	c := &Client{
		baseURL:      env.BaseURL,
		timeout:      env.Timeout,
		maxTokens:    env.MaxTokens,
		httpClient:   http.DefaultClient,
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseURL = normalizeBaseURL(c.baseURL)
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c
}

// BaseURL returns the service root the client posts to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// MaxTokens returns the default output token limit.
func (c *Client) MaxTokens() int {
	return c.maxTokens
}

// Caption asks the service to describe image. An empty length means
// CaptionNormal. With stream set the returned output carries a TextStream
// that the caller must drain or Close; otherwise it carries the caption.
//
// Every error is a *TaskError; the cause is one of *TimeoutError,
// *HTTPError, *NetworkError, ErrStreamUnavailable, or an encoding or decoding
// failure.
func (c *Client) Caption(ctx context.Context, image Image, length CaptionLength, stream bool, settings *SamplingSettings) (*CaptionOutput, error) {
	if length == "" {
		length = CaptionNormal
	}
	call := taskCall{
		task:  TaskCaption,
		path:  "/caption",
		field: "caption",
		body: func(encoded string, maxTokens int) any {
			return captionRequest{Image: encoded, Length: length, Stream: stream, MaxTokens: maxTokens}
		},
		attrs: []observability.Attribute{observability.String(observability.AttrCaptionLength, string(length))},
	}

	text, textStream, err := c.submitTask(ctx, call, image, stream, settings)
	if err != nil {
		return nil, err
	}
	return &CaptionOutput{Caption: text, Stream: textStream}, nil
}

// Query asks the service a question about image. Streaming and errors behave
// as for Caption.
func (c *Client) Query(ctx context.Context, image Image, question string, stream bool, settings *SamplingSettings) (*QueryOutput, error) {
	call := taskCall{
		task:  TaskQuery,
		path:  "/query",
		field: "answer",
		body: func(encoded string, maxTokens int) any {
			return queryRequest{Image: encoded, Question: question, Stream: stream, MaxTokens: maxTokens}
		},
		attrs: []observability.Attribute{observability.Int(observability.AttrQuestionLength, len(question))},
	}

	text, textStream, err := c.submitTask(ctx, call, image, stream, settings)
	if err != nil {
		return nil, err
	}
	return &QueryOutput{Answer: text, Stream: textStream}, nil
}

// taskCall describes one inference task: where it goes, how its body is
// built, and which response field holds the result.
type taskCall struct {
	task  Task
	path  string
	field string
	body  func(encoded string, maxTokens int) any
	attrs []observability.Attribute
}

// resolveMaxTokens returns settings.MaxTokens when positive, else the client
// default.
func (c *Client) resolveMaxTokens(settings *SamplingSettings) int {
	if settings != nil && settings.MaxTokens > 0 {
		return settings.MaxTokens
	}
	return c.maxTokens
}

func (c *Client) submitTask(ctx context.Context, call taskCall, image Image, stream bool, settings *SamplingSettings) (string, *TextStream, error) {
	requestID := c.newRequestID()
	maxTokens := c.resolveMaxTokens(settings)

	ctx, telemetry := c.startTelemetry(ctx, call, stream, requestID, maxTokens)

	fail := func(err error) (string, *TextStream, error) {
		taskErr := &TaskError{Task: call.task, Err: err}
		telemetry.finish(ctx, taskErr)
		return "", nil, taskErr
	}

	if image == nil {
		return fail(ErrNoImage)
	}
	encoded, err := image.Encode(ctx)
	if err != nil {
		return fail(fmt.Errorf("error encoding image: %w", err))
	}

	response, err := c.execute(ctx, c.baseURL+call.path, call.body(encoded.Base64, maxTokens), 0,
		utils.HeaderOption{Key: requestIDHeader, Value: requestID},
	)
	if err != nil {
		return fail(err)
	}

	if stream {
		textStream, err := newTextStream(response, func(summary streamSummary) {
			telemetry.streamClosed(ctx, summary)
		})
		if err != nil {
			utils.CloseWithLog(response.Body)
			return fail(err)
		}
		telemetry.streamOpened(ctx)
		return "", textStream, nil
	}

	text, err := extractField(response, call.field)
	if err != nil {
		return fail(err)
	}
	telemetry.finish(ctx, nil)
	return text, nil, nil
}

// extractField decodes a JSON object body and returns the string at field.
// A missing or null field yields "".
func extractField(response *http.Response, field string) (string, error) {
	fields, err := utils.DecodeJSONBody[map[string]json.RawMessage](response)
	if err != nil {
		return "", err
	}

	raw, ok := (*fields)[field]
	if !ok {
		return "", nil
	}
	var value *string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("error decoding %q field: %w", field, err)
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}
