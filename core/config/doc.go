// Package config resolves the inference client's settings: the default output
// token limit, the service base URL, and the request timeout.
//
// Values come from, in increasing precedence, built-in defaults, the
// MOONDREAM_* environment variables (optionally populated from .env files by
// [LoadDotEnv]), a YAML file read by [LoadFile], and explicit values merged
// with [Config.Merge]. Invalid environment values are logged through slog and
// replaced by their defaults rather than failing the caller.
package config
