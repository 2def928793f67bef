// Package session provides the signed session cookie codec and the
// Redis-backed session mirror used by the engine.
//
// # Cookie codec
//
// The session cookie is an HS256-signed JWT carrying the token pair, its
// lease expiry, and the normalized claim flags. Tampering with any field
// invalidates the signature; the cookie lifetime is independent of the
// access-token lease it transports.
//
// # Session mirror
//
// Active sessions are mirrored into Redis as token digests plus metadata.
// The mirror answers revocation queries and enforces atomic token-pair
// rotation via a compare-and-swap script: the stored pair advances only when
// the caller still holds the current refresh token.
//
// # Architecture boundaries
//
// This package owns the [Codec], the [Store], and the [Session] model. It
// does NOT call the identity service or enforce lifecycle policy — those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import sessiongate (no upward imports).
//   - Store raw access or refresh tokens in Redis.
//   - Decide when a session is refreshed, validated, or revoked.
package session
