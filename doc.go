// Package sessiongate provides the client-side session lifecycle engine for
// applications fronting an external identity service: credential exchange with
// MFA negotiation, opaque token-pair refresh, rate-limited session validation
// with fail-open transient handling, and a password-reset gate for HTTP
// middleware chains.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// sessiongate is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Session, Outcome, MetricsSnapshot, etc.). All internal
// coordination — identity-service transport, audit dispatch — lives under
// internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, the identity-service HTTP client, or cookie
//     encoding details in its public API.
//   - Re-implement the identity service's own token rotation or rate-limit
//     rules; the service stays the single source of truth.
//   - Import any sub-package that re-imports sessiongate (no import cycles).
//
// # Availability contract
//
// ValidateSession must never eject an active user on infrastructure flakiness
// alone: transient backend failures fail open after the retry budget. Only a
// backend-confirmed invalid session (401/403 or a critical rejection reason)
// forces logout, and that path is never retried.
package sessiongate
