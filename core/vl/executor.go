package vl

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/visionlang/vl/internal/utils"
	"github.com/visionlang/vl/providers/observability"
)

// execute sends one JSON POST bounded by timeout and returns the response with
// its body unread. A timeout <= 0 means the client timeout.
//
// The timer is armed before the request is sent and stopped once the
// response headers arrive or the request fails; if it fired first the call is
// a *TimeoutError. Non-2xx responses become *HTTPError and other transport
// failures *NetworkError. On success the request context lives until the
// caller closes the body.
func (c *Client) execute(ctx context.Context, url string, body any, timeout time.Duration, headers ...utils.HeaderOption) (*http.Response, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	span := observability.SpanFromContext(ctx)

	requestCtx, cancel := context.WithCancelCause(ctx)
	request, size, err := utils.NewPostRequest(requestCtx, url, body, headers...)
	if err != nil {
		cancel(nil)
		return nil, err
	}
	if span != nil {
		span.AddEvent(observability.EventRequestPrepared,
			observability.String(observability.AttrHTTPMethod, request.Method),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, size),
			observability.Duration(observability.AttrTimeout, timeout),
		)
	}

	elapsed := utils.NewTimer()
	timer := time.AfterFunc(timeout, func() { cancel(errRequestTimeout) })

	response, err := c.httpClient.Do(request)
	if err != nil {
		fired := !timer.Stop()
		cancel(nil)
		if fired {
			return nil, c.timedOut(span, timeout, elapsed)
		}
		if span != nil {
			span.AddEvent(observability.EventRequestError,
				observability.Error(err),
				observability.Duration(observability.AttrHTTPDuration, elapsed.Stop()),
			)
		}
		return nil, &NetworkError{Err: err}
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		// The error body is read while the timer is still armed.
		httpErr := newHTTPError(response)
		timer.Stop()
		cancel(nil)
		if span != nil {
			span.AddEvent(observability.EventResponseReceived,
				observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
				observability.Duration(observability.AttrHTTPDuration, elapsed.Stop()),
			)
		}
		return nil, httpErr
	}

	if !timer.Stop() {
		utils.CloseWithLog(response.Body)
		cancel(nil)
		return nil, c.timedOut(span, timeout, elapsed)
	}

	if span != nil {
		span.AddEvent(observability.EventResponseReceived,
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Int64(observability.AttrHTTPResponseBodySize, response.ContentLength),
			observability.Duration(observability.AttrHTTPDuration, elapsed.Stop()),
		)
	}

	if response.Body == nil || response.Body == http.NoBody {
		cancel(nil)
		return response, nil
	}
	response.Body = utils.BodyWithCancel(response.Body, func() { cancel(nil) })
	return response, nil
}

func (c *Client) timedOut(span observability.Span, timeout time.Duration, elapsed *utils.Timer) error {
	if span != nil {
		span.AddEvent(observability.EventRequestTimeout,
			observability.Duration(observability.AttrTimeout, timeout),
			observability.Duration(observability.AttrHTTPDuration, elapsed.Stop()),
		)
	}
	return &TimeoutError{Timeout: timeout}
}

// newHTTPError consumes and closes the body of a non-2xx response. The body
// is parsed leniently as {"message": string}: relaxed syntax inside a closed
// object is repaired, while anything else, truncated objects included, counts
// as an empty payload.
func newHTTPError(response *http.Response) *HTTPError {
	defer utils.CloseWithLog(response.Body)

	httpErr := &HTTPError{
		StatusCode: response.StatusCode,
		Message:    fmt.Sprintf("HTTP error! status: %d", response.StatusCode),
	}

	data, err := utils.ReadBody(response.Body)
	if err != nil || len(data) == 0 {
		return httpErr
	}
	httpErr.Body = utils.BodyPreview(response.Header.Get("Content-Type"), data)

	if !isClosedObject(data) {
		return httpErr
	}
	payload, err := utils.ParseLenient[errorPayload](string(data))
	if err == nil && payload.Message != "" {
		httpErr.Message = payload.Message
	}
	return httpErr
}

func isClosedObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) >= 2 && data[0] == '{' && data[len(data)-1] == '}'
}
