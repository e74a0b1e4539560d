// Package utils provides the low-level helpers behind the inference client:
// JSON POST request construction, bounded body reading and decoding,
// response-body wrappers that release their request context on Close, an
// incremental UTF-8 decoder for streamed text, lenient JSON parsing for error
// payloads, and a small latency timer.
//
// Key entry points: [NewPostRequest], [DecodeJSONBody], [BodyWithCancel],
// [NewTextDecoder], [ParseLenient], [BodyPreview] and [Timer].
package utils
