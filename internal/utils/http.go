package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

// maxResponseBodySize is the maximum response body size (10 MB) read into
// memory for JSON results and error payloads. Enforced via io.LimitReader to
// prevent unbounded allocation from rogue responses.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// HeaderOption is a single extra header applied to an outgoing request.
type HeaderOption struct {
	Key   string
	Value string
}

// NewPostRequest builds a POST request carrying body encoded as JSON. The
// Content-Type header is always application/json; headers are applied after it
// and may add (but should not replace) request metadata. The returned int is
// the encoded body size, reported to observability hooks by callers.
func NewPostRequest(ctx context.Context, url string, body any, headers ...HeaderOption) (*http.Request, int, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("error marshaling body: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, 0, fmt.Errorf("error creating request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	for _, header := range headers {
		request.Header.Set(header.Key, header.Value)
	}

	return request, len(jsonBody), nil
}

// ReadBody reads at most maxResponseBodySize bytes from body. It does not
// close the body.
func ReadBody(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxResponseBodySize))
	if err != nil {
		return data, fmt.Errorf("error reading response body: %w", err)
	}
	return data, nil
}

// DecodeJSONBody reads the whole response body, closes it, and unmarshals it
// into OutputStruct. Unmarshal errors include a truncated preview of the
// payload for debugging.
func DecodeJSONBody[OutputStruct any](response *http.Response) (*OutputStruct, error) {
	defer CloseWithLog(response.Body)

	data, err := ReadBody(response.Body)
	if err != nil {
		return nil, err
	}

	var result OutputStruct
	if err = json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s", response.StatusCode, err, TruncateString(string(data), 500))
	}
	return &result, nil
}

// CloseWithLog closes closer and logs (rather than returns) a failure, for use
// in defer statements where the primary error must not be overridden.
func CloseWithLog(closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}

// cancelOnClose releases a request context when its response body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel func()
	once   sync.Once
}

// BodyWithCancel wraps body so that Close first invokes cancel (exactly once)
// and then closes the underlying body. Cancelling first unblocks a Read that is
// parked on the network, which would otherwise hold the body lock and stall
// Close.
func BodyWithCancel(body io.ReadCloser, cancel func()) io.ReadCloser {
	return &cancelOnClose{ReadCloser: body, cancel: cancel}
}

func (body *cancelOnClose) Close() error {
	body.once.Do(body.cancel)
	return body.ReadCloser.Close()
}
