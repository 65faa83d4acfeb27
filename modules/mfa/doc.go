// Package mfa exposes the multi-factor verification service over HTTP.
//
// Every route is scoped to a principal under /v1/mfa/principals/{principalID}.
// The login flow calls GET /required and POST /verify; the self-service surface
// drives enrollment, factor management, backup codes and channel codes.
//
// Responses use a single JSON envelope: {"data": ...} on success and
// {"error": {"code": ..., "message": ...}} on failure. Every rejected code is
// answered with the same 401 verification_failed regardless of the cause;
// the precise reason is recorded in the verification ledger. Store or cache
// outages answer 503 so callers may retry.
package mfa
