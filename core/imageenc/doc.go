// Package imageenc turns image files, byte slices, readers and decoded
// pictures into [vl.Image] values.
//
// Images are decoded with imaging, fitted inside an optional maximum side,
// re-encoded as JPEG and returned as a "data:image/jpeg;base64," URI. Results
// for raw bytes are cached in memory keyed by the SHA-256 of the input, so
// asking about the same photo twice only encodes it once.
package imageenc
