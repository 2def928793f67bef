// Package middleware exposes net/http middleware adapters for the session
// cookie guard and the password-reset gate built on top of
// sessiongate.Engine.
//
// # Guards
//
//   - [Guard] — decodes the session cookie, validates the session against
//     the identity service, and injects the session into the request context.
//   - [ResetGate] — browser-flow redirect matrix that pins sessions holding
//     a temporary password to the reset page.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement session logic itself — decoding, validation, probes, and
// teardown are all delegated to the Engine.
//
// # What this package must NOT do
//
//   - Parse or create session cookies directly (delegates to Engine).
//   - Access Redis or the identity service (Engine handles I/O).
//   - Make session decisions beyond routing on what Engine reports.
package middleware
