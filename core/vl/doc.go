// Package vl is a client for a vision-language inference service.
//
// A [Client] posts an encoded image with a task (caption or query) to the
// service and returns either the complete text or a [TextStream] of text
// chunks, decided by the caller's stream flag:
//
//	client := vl.New(vl.WithBaseURL("http://localhost:8080"))
//	out, err := client.Caption(ctx, vl.EncodedImage{Base64: dataURI}, vl.CaptionShort, true, nil)
//	if err != nil {
//	    return err
//	}
//	defer out.Stream.Close()
//	for chunk, err := range out.Stream.Iter() {
//	    ...
//	}
//
// Each call makes exactly one HTTP request, bounded by the client timeout up
// to the arrival of the response headers. Failures are returned as
// [*TaskError] wrapping a [*TimeoutError], [*HTTPError], [*NetworkError] or
// [ErrStreamUnavailable]; use errors.As to branch on them and [KindOf] to get
// a label for the outcome.
package vl
