// Package observability defines the interfaces and semantic conventions the
// inference client uses for tracing, metrics, and structured logging.
//
// The central entry point is [Provider], which composes [Tracer], [Metrics],
// and [Logger] into a single injectable dependency. A Provider can be handed
// to the client directly or propagated through a [context.Context] with
// [ContextWithObserver]; the active [Span] of a task call travels the same way
// via [ContextWithSpan] so lower layers can add events to it.
//
// semconv.go holds the attribute, span, event, and metric names shared by the
// client and every backend.
package observability
