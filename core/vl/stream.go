package vl

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"runtime"
	"strings"
	"sync"

	"github.com/visionlang/vl/internal/utils"
)

const streamBufferSize = 4096

// Reasons reported when a stream closes.
const (
	closeReasonEOF       = "eof"
	closeReasonClosed    = "closed"
	closeReasonError     = "error"
	closeReasonAbandoned = "abandoned"
)

// TextStream is a single-pass sequence of decoded text chunks read from a
// streaming response. Pull chunks with Next or range over Iter. The response
// body is released exactly once: at end of stream, on a read error, on Close,
// or when the stream becomes unreachable without being closed.
//
// A TextStream has one consumer. A pull from a second goroutine while a read
// is in flight fails with ErrConcurrentRead; Close may be called from any
// goroutine and unblocks a pending read.
type TextStream struct {
	state   *streamState
	cleanup runtime.Cleanup
}

type streamStatus int

const (
	streamOpen streamStatus = iota
	streamReading
	streamClosed
)

// streamSummary is handed to the close hook.
type streamSummary struct {
	reason string
	chunks int
	bytes  int64
	err    error
}

// streamState is everything the cleanup needs; it must not point back at the
// TextStream.
type streamState struct {
	body    io.ReadCloser
	decoder io.Reader
	buf     []byte
	onClose func(streamSummary)

	mu      sync.Mutex
	status  streamStatus
	err     error // terminal error, returned by every pull once closed
	pending error // read error that arrived together with data
	chunks  int
	bytes   int64
}

// newTextStream takes ownership of response.Body.
func newTextStream(response *http.Response, onClose func(streamSummary)) (*TextStream, error) {
	if response == nil || response.Body == nil || response.Body == http.NoBody {
		return nil, ErrStreamUnavailable
	}

	state := &streamState{
		body:    response.Body,
		decoder: utils.NewTextDecoder(response.Body),
		buf:     make([]byte, streamBufferSize),
		onClose: onClose,
	}
	stream := &TextStream{state: state}
	stream.cleanup = runtime.AddCleanup(stream, func(state *streamState) {
		_ = state.close(closeReasonAbandoned, ErrStreamClosed)
	}, state)
	return stream, nil
}

// Next returns the next non-empty chunk of text. It returns io.EOF once the
// server has finished, ErrStreamClosed after Close, and a wrapped error if
// the read failed. Multi-byte characters split across network reads are
// never broken.
func (s *TextStream) Next() (string, error) {
	state := s.state
	if err := state.begin(); err != nil {
		return "", err
	}

	for {
		n, err := state.decoder.Read(state.buf)
		if n > 0 {
			return state.deliver(string(state.buf[:n]), err)
		}
		if err != nil {
			return "", state.fail(err)
		}
	}
}

// Iter returns a range-over-func view of the stream. Leaving the loop early
// closes the stream. A read failure is yielded once as the final element.
func (s *TextStream) Iter() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer s.Close()
		for {
			chunk, err := s.Next()
			if errors.Is(err, io.EOF) || errors.Is(err, ErrStreamClosed) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Collect reads the rest of the stream and returns the concatenated text.
// On failure it returns what was read so far together with the error.
func (s *TextStream) Collect() (string, error) {
	var text strings.Builder
	for chunk, err := range s.Iter() {
		if err != nil {
			return text.String(), err
		}
		text.WriteString(chunk)
	}
	return text.String(), nil
}

// Close releases the response body. It is safe to call more than once and
// from another goroutine; only the first call has an effect.
func (s *TextStream) Close() error {
	err := s.state.close(closeReasonClosed, ErrStreamClosed)
	s.cleanup.Stop()
	return err
}

func (state *streamState) begin() error {
	state.mu.Lock()
	switch state.status {
	case streamClosed:
		err := state.err
		state.mu.Unlock()
		return err
	case streamReading:
		state.mu.Unlock()
		return ErrConcurrentRead
	}

	if pending := state.pending; pending != nil {
		state.pending = nil
		state.mu.Unlock()
		return state.fail(pending)
	}

	state.status = streamReading
	state.mu.Unlock()
	return nil
}

func (state *streamState) deliver(chunk string, readErr error) (string, error) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.status == streamClosed {
		return "", state.err
	}
	state.status = streamOpen
	state.chunks++
	state.bytes += int64(len(chunk))
	state.pending = readErr
	return chunk, nil
}

// fail closes the stream after a read error and returns the error every
// later pull will see.
func (state *streamState) fail(readErr error) error {
	state.mu.Lock()
	if state.status == streamClosed {
		err := state.err
		state.mu.Unlock()
		return err
	}
	state.mu.Unlock()

	if errors.Is(readErr, io.EOF) {
		_ = state.close(closeReasonEOF, io.EOF)
	} else {
		_ = state.close(closeReasonError, fmt.Errorf("stream read error: %w", readErr))
	}
	// A concurrent Close may have won; report whatever was recorded.
	return state.terminal()
}

func (state *streamState) terminal() error {
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.err
}

func (state *streamState) close(reason string, terminal error) error {
	state.mu.Lock()
	if state.status == streamClosed {
		state.mu.Unlock()
		return nil
	}
	state.status = streamClosed
	state.err = terminal
	summary := streamSummary{reason: reason, chunks: state.chunks, bytes: state.bytes}
	if reason == closeReasonError {
		summary.err = terminal
	}
	state.mu.Unlock()

	err := state.body.Close()
	if state.onClose != nil {
		state.onClose(summary)
	}
	return err
}
