package vl

import (
	"context"

	"github.com/visionlang/vl/internal/utils"
	"github.com/visionlang/vl/providers/observability"
)

// taskTelemetry reports one task call. Every method is a no-op when no
// observer is configured.
type taskTelemetry struct {
	observer observability.Provider
	span     observability.Span
	task     Task
	stream   bool
	timer    *utils.Timer
}

func (c *Client) startTelemetry(ctx context.Context, call taskCall, stream bool, requestID string, maxTokens int) (context.Context, *taskTelemetry) {
	observer := c.observer
	if observer == nil {
		observer = observability.ObserverFromContext(ctx)
	}
	telemetry := &taskTelemetry{observer: observer, task: call.task, stream: stream, timer: utils.NewTimer()}
	if observer == nil {
		return ctx, telemetry
	}

	spanName := observability.SpanCaption
	if call.task == TaskQuery {
		spanName = observability.SpanQuery
	}
	attrs := append([]observability.Attribute{
		observability.String(observability.AttrTask, string(call.task)),
		observability.Bool(observability.AttrTaskStream, stream),
		observability.Int(observability.AttrMaxTokens, maxTokens),
		observability.String(observability.AttrRequestID, requestID),
	}, call.attrs...)

	ctx, telemetry.span = observer.StartSpan(ctx, spanName, attrs...)
	if telemetry.span == nil {
		telemetry.span = nopSpan{}
	}
	ctx = observability.ContextWithSpan(ctx, telemetry.span)
	ctx = observability.ContextWithObserver(ctx, observer)

	observer.Debug(ctx, "vl "+string(call.task), attrs...)
	return ctx, telemetry
}

func (t *taskTelemetry) labels(err error) []observability.Attribute {
	return []observability.Attribute{
		observability.String(observability.AttrTask, string(t.task)),
		observability.String(observability.AttrOutcome, string(KindOf(err))),
		observability.Bool(observability.AttrTaskStream, t.stream),
	}
}

// finish records a call that ended without handing out a stream.
func (t *taskTelemetry) finish(ctx context.Context, err error) {
	if t.observer == nil {
		return
	}
	duration := t.timer.Stop()
	labels := t.labels(err)

	t.observer.Counter(observability.MetricRequests).Add(ctx, 1, labels...)
	t.observer.Histogram(observability.MetricRequestDuration).Record(ctx, duration.Seconds(), labels...)

	if err != nil {
		t.span.RecordError(err)
		t.span.SetStatus(observability.StatusError, string(KindOf(err)))
		t.observer.Error(ctx, "vl "+string(t.task)+" failed",
			observability.Error(err),
			observability.String(observability.AttrOutcome, string(KindOf(err))),
			observability.Duration(observability.AttrDuration, duration),
		)
	} else {
		t.span.SetStatus(observability.StatusOK, "")
		t.observer.Debug(ctx, "vl "+string(t.task)+" completed",
			observability.Duration(observability.AttrDuration, duration),
		)
	}
	t.span.End()
}

// streamOpened records a successful call whose body is now owned by a
// TextStream. The span stays open until the stream closes.
func (t *taskTelemetry) streamOpened(ctx context.Context) {
	if t.observer == nil {
		return
	}
	duration := t.timer.Stop()
	labels := t.labels(nil)

	t.observer.Counter(observability.MetricRequests).Add(ctx, 1, labels...)
	t.observer.Histogram(observability.MetricRequestDuration).Record(ctx, duration.Seconds(), labels...)
	t.span.AddEvent(observability.EventStreamOpened, observability.Duration(observability.AttrDuration, duration))
}

func (t *taskTelemetry) streamClosed(ctx context.Context, summary streamSummary) {
	if t.observer == nil {
		return
	}
	attrs := []observability.Attribute{
		observability.String(observability.AttrStreamReason, summary.reason),
		observability.Int(observability.AttrStreamChunks, summary.chunks),
		observability.Int64(observability.AttrStreamBytes, summary.bytes),
	}
	t.span.AddEvent(observability.EventStreamClosed, attrs...)
	t.observer.Counter(observability.MetricStreamChunks).Add(ctx, int64(summary.chunks),
		observability.String(observability.AttrTask, string(t.task)),
	)

	if summary.err != nil {
		t.span.RecordError(summary.err)
		t.span.SetStatus(observability.StatusError, closeReasonError)
		t.observer.Warn(ctx, "vl "+string(t.task)+" stream failed", append(attrs, observability.Error(summary.err))...)
	} else {
		t.span.SetStatus(observability.StatusOK, summary.reason)
	}
	t.span.End()
}

type nopSpan struct{}

func (nopSpan) End()                                        {}
func (nopSpan) SetAttributes(...observability.Attribute)    {}
func (nopSpan) SetStatus(observability.StatusCode, string)  {}
func (nopSpan) RecordError(error)                           {}
func (nopSpan) AddEvent(string, ...observability.Attribute) {}
