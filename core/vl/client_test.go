package vl

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/visionlang/vl/core/config"
)

// TestCaption_NonStream_ReturnsCaption verifies the request shape and that
// the caption field is returned verbatim.
func TestCaption_NonStream_ReturnsCaption(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/caption" {
			t.Errorf("expected /caption, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected JSON content type, got %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}

		body := decodeRequest(t, r)
		if body["image"] != testImage || body["length"] != "normal" || body["stream"] != false || body["max_tokens"] != float64(1024) {
			t.Errorf("unexpected request body %v", body)
		}
		writeJSON(w, http.StatusOK, map[string]string{"caption": "A beautiful landscape"})
	})

	out, err := client.Caption(context.Background(), EncodedImage{Base64: testImage}, "", false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.IsStream() {
		t.Fatal("expected a complete caption, got a stream")
	}
	if out.Caption != "A beautiful landscape" {
		t.Errorf("expected caption %q, got %q", "A beautiful landscape", out.Caption)
	}
}

// TestCaption_Stream_ConcatenatesChunks verifies that streamed chunks arrive
// in order and concatenate to the full caption.
func TestCaption_Stream_ConcatenatesChunks(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeRequest(t, r)
		if body["stream"] != true || body["length"] != "short" {
			t.Errorf("unexpected request body %v", body)
		}
		writeChunks(w, "A beautiful", " landscape")
	})

	out, err := client.Caption(context.Background(), EncodedImage{Base64: testImage}, CaptionShort, true, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.IsStream() || out.Caption != "" {
		t.Fatalf("expected only a stream, got %+v", out)
	}
	defer out.Stream.Close()

	var chunks []string
	for chunk, err := range out.Stream.Iter() {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	if got := strings.Join(chunks, ""); got != "A beautiful landscape" {
		t.Errorf("expected %q, got %q (chunks %q)", "A beautiful landscape", got, chunks)
	}
}

func TestQuery_NonStream_ReturnsAnswer(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("expected /query, got %s", r.URL.Path)
		}
		body := decodeRequest(t, r)
		if body["question"] != "How many people are in the image?" || body["stream"] != false {
			t.Errorf("unexpected request body %v", body)
		}
		if _, ok := body["length"]; ok {
			t.Error("query body must not carry a length")
		}
		writeJSON(w, http.StatusOK, map[string]string{"answer": "There are two people"})
	})

	out, err := client.Query(context.Background(), EncodedImage{Base64: testImage}, "How many people are in the image?", false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.IsStream() || out.Answer != "There are two people" {
		t.Errorf("unexpected output %+v", out)
	}
}

func TestQuery_Stream_Collect(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeChunks(w, "There are ", "two ", "people")
	})

	out, err := client.Query(context.Background(), EncodedImage{Base64: testImage}, "How many?", true, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	answer, err := out.Stream.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if answer != "There are two people" {
		t.Errorf("expected full answer, got %q", answer)
	}
}

// TestCaption_MaxTokensResolution verifies settings override the default and
// that a zero or missing setting falls back to it.
func TestCaption_MaxTokensResolution(t *testing.T) {
	seen := make(chan float64, 4)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen <- decodeRequest(t, r)["max_tokens"].(float64)
		writeJSON(w, http.StatusOK, map[string]string{"caption": "ok"})
	}, WithMaxTokens(256))

	ctx := context.Background()
	image := EncodedImage{Base64: testImage}
	for _, settings := range []*SamplingSettings{nil, {}, {MaxTokens: 32}, nil} {
		if _, err := client.Caption(ctx, image, CaptionLong, false, settings); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	close(seen)
	want := []float64{256, 256, 32, 256}
	i := 0
	for got := range seen {
		if i >= len(want) || got != want[i] {
			t.Errorf("request %d: max_tokens = %v", i, got)
		}
		i++
	}
	if i != len(want) {
		t.Errorf("expected %d requests, got %d", len(want), i)
	}
}

// TestResolveMaxTokens_Idempotent verifies that resolving twice without an
// override gives the same default.
func TestResolveMaxTokens_Idempotent(t *testing.T) {
	t.Setenv(config.EnvMaxTokens, "")
	client := New()

	first := client.resolveMaxTokens(nil)
	second := client.resolveMaxTokens(&SamplingSettings{})
	if first != config.DefaultMaxTokens || second != first {
		t.Errorf("expected %d twice, got %d and %d", config.DefaultMaxTokens, first, second)
	}
	if got := client.resolveMaxTokens(&SamplingSettings{MaxTokens: 7}); got != 7 {
		t.Errorf("expected override 7, got %d", got)
	}
}

func TestNew_ResolvesConfiguration(t *testing.T) {
	t.Setenv(config.EnvMaxTokens, "300")
	t.Setenv(config.EnvBaseURL, "http://from-env:8080/")
	t.Setenv(config.EnvTimeout, "")

	client := New()
	if client.BaseURL() != "http://from-env:8080" || client.MaxTokens() != 300 || client.Timeout() != DefaultTimeout {
		t.Errorf("unexpected env configuration: %s %d %s", client.BaseURL(), client.MaxTokens(), client.Timeout())
	}

	client = New(
		WithConfig(config.Config{BaseURL: "https://from-file", Timeout: time.Second}),
		WithBaseURL("http://explicit:1/"),
		WithTimeout(0),
		WithMaxTokens(-1),
	)
	if client.BaseURL() != "http://explicit:1" || client.Timeout() != time.Second || client.MaxTokens() != 300 {
		t.Errorf("unexpected option precedence: %s %d %s", client.BaseURL(), client.MaxTokens(), client.Timeout())
	}
}

func TestCaption_UsesRequestIDGenerator(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Request-ID"); got != "req-42" {
			t.Errorf("expected X-Request-ID req-42, got %q", got)
		}
		writeJSON(w, http.StatusOK, map[string]string{"caption": "ok"})
	}, WithRequestIDGenerator(func() string { return "req-42" }))

	if _, err := client.Caption(context.Background(), EncodedImage{Base64: testImage}, CaptionNormal, false, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestCaption_ResultFieldEdgeCases verifies extraction of missing, null and
// mistyped result fields.
func TestCaption_ResultFieldEdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "missing field", body: `{"answer":"wrong task"}`, want: ""},
		{name: "null field", body: `{"caption":null}`, want: ""},
		{name: "unicode preserved", body: `{"caption":"café 🙂"}`, want: "café 🙂"},
		{name: "number field", body: `{"caption":42}`, wantErr: true},
		{name: "not json", body: `caption: hi`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})

			out, err := client.Caption(context.Background(), EncodedImage{Base64: testImage}, CaptionNormal, false, nil)
			if tt.wantErr {
				var taskErr *TaskError
				if !errors.As(err, &taskErr) {
					t.Fatalf("expected *TaskError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Caption != tt.want {
				t.Errorf("expected %q, got %q", tt.want, out.Caption)
			}
		})
	}
}

type failingImage struct{}

func (failingImage) Encode(context.Context) (EncodedImage, error) {
	return EncodedImage{}, errors.New("unsupported format")
}

// TestCaption_EncodeFailure verifies that encoding errors are wrapped and no
// request is sent.
func TestCaption_EncodeFailure(t *testing.T) {
	var requests atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	})

	_, err := client.Caption(context.Background(), failingImage{}, CaptionNormal, false, nil)
	if err == nil || err.Error() != "failed to generate caption: error encoding image: unsupported format" {
		t.Errorf("unexpected error %v", err)
	}
	if requests.Load() != 0 {
		t.Errorf("expected no request, got %d", requests.Load())
	}

	_, err = client.Query(context.Background(), nil, "q", false, nil)
	if !errors.Is(err, ErrNoImage) || !strings.HasPrefix(err.Error(), "failed to process query: ") {
		t.Errorf("unexpected nil image error %v", err)
	}
}

// TestQuery_ErrorsKeepCategory verifies that the categorical error survives
// the task wrapper.
func TestQuery_ErrorsKeepCategory(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "image too large"})
	})

	_, err := client.Query(context.Background(), EncodedImage{Base64: testImage}, "q", true, nil)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError inside, got %v", err)
	}
	if httpErr.StatusCode != http.StatusUnprocessableEntity || httpErr.Error() != "image too large" {
		t.Errorf("unexpected HTTP error %+v", httpErr)
	}
	if err.Error() != "failed to process query: image too large" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if KindOf(err) != KindHTTP {
		t.Errorf("expected kind http, got %s", KindOf(err))
	}
}

// TestCaption_StreamTimeout verifies the 100ms/200ms timeout scenario through
// the public API.
func TestCaption_StreamTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
			writeChunks(w, "too late")
		case <-r.Context().Done():
		}
	}, WithTimeout(100*time.Millisecond))

	_, err := client.Caption(context.Background(), EncodedImage{Base64: testImage}, CaptionNormal, true, nil)

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if !strings.Contains(err.Error(), "the operation was aborted") {
		t.Errorf("expected abort phrase, got %q", err.Error())
	}
	if !strings.HasPrefix(err.Error(), "failed to generate caption: ") {
		t.Errorf("expected caption prefix, got %q", err.Error())
	}
}

// TestCaption_StreamWithEmptyBody verifies that a 200 with no body cannot be
// streamed.
func TestCaption_StreamWithEmptyBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.Caption(context.Background(), EncodedImage{Base64: testImage}, CaptionNormal, true, nil)
	if !errors.Is(err, ErrStreamUnavailable) {
		t.Fatalf("expected ErrStreamUnavailable, got %v", err)
	}
	if err.Error() != "failed to generate caption: response body is not readable" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

// TestClient_ConcurrentCalls verifies that independent calls share nothing
// but the client.
func TestClient_ConcurrentCalls(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeRequest(t, r)
		writeJSON(w, http.StatusOK, map[string]any{"answer": body["question"]})
	})

	const calls = 20
	errs := make(chan error, calls)
	for i := range calls {
		go func() {
			question := strings.Repeat("?", i+1)
			out, err := client.Query(context.Background(), EncodedImage{Base64: testImage}, question, false, nil)
			if err == nil && out.Answer != question {
				err = errors.New("answer mismatch: " + out.Answer)
			}
			errs <- err
		}()
	}
	for range calls {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}
