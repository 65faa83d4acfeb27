// Package binder decodes HTTP request bodies into Go structs.
//
// JSON is strict: the media type must be application/json, unknown fields and
// trailing data are errors, bodies are capped at DefaultMaxJSONSize, and decoded
// strings are trimmed with control characters removed. Failures wrap the
// package's sentinel errors so callers can map them to 400 responses with
// errors.Is.
package binder
