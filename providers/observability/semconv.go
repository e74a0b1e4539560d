package observability

// Semantic conventions shared by the client and every backend.

// --- Task attributes ---

const (
	// AttrTask is the task kind ("caption" or "query").
	AttrTask = "vl.task"

	// AttrTaskStream reports whether the caller asked for a token stream.
	AttrTaskStream = "vl.stream"

	// AttrMaxTokens is the resolved output token limit sent with the request.
	AttrMaxTokens = "vl.max_tokens" // #nosec G101 -- Not a credential, token refers to model output tokens

	// AttrCaptionLength is the requested caption length hint.
	AttrCaptionLength = "vl.caption.length"

	// AttrQuestionLength is the length in bytes of the query question.
	AttrQuestionLength = "vl.question.length"

	// AttrRequestID is the X-Request-ID sent with the request.
	AttrRequestID = "vl.request.id"

	// AttrOutcome is the categorical result of a task call (see vl.ErrorKind).
	AttrOutcome = "vl.outcome"

	// AttrTimeout is the resolved request timeout.
	AttrTimeout = "vl.timeout"
)

// --- HTTP attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
	AttrHTTPDuration         = "http.request.duration"
)

// --- Stream attributes ---

const (
	// AttrStreamChunks is the number of text chunks delivered to the consumer.
	AttrStreamChunks = "vl.stream.chunks"

	// AttrStreamBytes is the number of decoded bytes delivered to the consumer.
	AttrStreamBytes = "vl.stream.bytes"

	// AttrStreamReason is why the stream closed ("eof", "closed", "error").
	AttrStreamReason = "vl.stream.reason"
)

// --- Generic attributes ---

const (
	AttrError             = "error"
	AttrErrorType         = "error.type"
	AttrDuration          = "duration"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Span names ---

const (
	SpanCaption = "vl.caption"
	SpanQuery   = "vl.query"
)

// --- Event names ---

const (
	EventRequestPrepared  = "http.request.prepared"
	EventResponseReceived = "http.response.received"
	EventRequestError     = "http.request.error"
	EventRequestTimeout   = "http.request.timeout"
	EventStreamOpened     = "vl.stream.opened"
	EventStreamClosed     = "vl.stream.closed"
)

// --- Metric names ---

const (
	// MetricRequests counts task calls, labelled by task and outcome.
	MetricRequests = "vl.requests.total"

	// MetricRequestDuration records time to the result, or to the response
	// headers for streams, in seconds.
	MetricRequestDuration = "vl.request.duration_seconds"

	// MetricStreamChunks counts text chunks delivered by streams.
	MetricStreamChunks = "vl.stream.chunks.total"
)
