package vl

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStreamUnavailable is returned when a streaming response has no
	// readable body.
	ErrStreamUnavailable = errors.New("response body is not readable")

	// ErrStreamClosed is returned when pulling from a stream that was closed
	// by its consumer.
	ErrStreamClosed = errors.New("vl: stream closed")

	// ErrConcurrentRead is returned when a second goroutine pulls from a
	// stream while a read is in flight.
	ErrConcurrentRead = errors.New("vl: stream is already being read")

	// ErrNoImage is returned when a task is submitted with a nil Image.
	ErrNoImage = errors.New("vl: image is required")

	// errRequestTimeout is the cancellation cause set by the request timer.
	errRequestTimeout = errors.New("vl: request timeout")
)

// TimeoutError reports that a request did not complete within its timeout.
// It matches context.DeadlineExceeded under errors.Is.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %s: the operation was aborted", e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// HTTPError reports a non-2xx response. Message is the server's "message"
// field when the error body carried one, otherwise "HTTP error! status: N".
type HTTPError struct {
	StatusCode int
	Message    string
	// Body is a truncated preview of the error body, for logs.
	Body string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NetworkError wraps a transport failure: DNS, refused connection, TLS, or
// cancellation of the caller's context.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request could not be completed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// TaskError is returned by Caption and Query for every failure. The
// underlying error stays reachable through errors.As and errors.Is.
type TaskError struct {
	Task Task
	Err  error
}

func (e *TaskError) Error() string {
	switch e.Task {
	case TaskCaption:
		return fmt.Sprintf("failed to generate caption: %v", e.Err)
	case TaskQuery:
		return fmt.Sprintf("failed to process query: %v", e.Err)
	default:
		return fmt.Sprintf("failed to run %s: %v", e.Task, e.Err)
	}
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// ErrorKind is the categorical outcome of a call, used as a metric label.
type ErrorKind string

const (
	KindNone     ErrorKind = "ok"
	KindTimeout  ErrorKind = "timeout"
	KindHTTP     ErrorKind = "http"
	KindNetwork  ErrorKind = "network"
	KindCanceled ErrorKind = "canceled"
	KindStream   ErrorKind = "stream"
	KindInternal ErrorKind = "internal"
)

// KindOf classifies err. Wrapping (including TaskError) is looked through.
func KindOf(err error) ErrorKind {
	var (
		timeoutErr *TimeoutError
		httpErr    *HTTPError
		netErr     *NetworkError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &timeoutErr):
		return KindTimeout
	case errors.As(err, &httpErr):
		return KindHTTP
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.Is(err, ErrStreamUnavailable), errors.Is(err, ErrStreamClosed), errors.Is(err, ErrConcurrentRead):
		return KindStream
	default:
		return KindInternal
	}
}
