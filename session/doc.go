// Package session provides Redis-backed session persistence and the CBOR
// session encoding.
//
// # Encoding
//
// Sessions are stored as deterministic CBOR maps with integer keys and an
// explicit schema version. Blobs carrying an unknown version are rejected
// rather than guessed at.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model. It
// does NOT interpret cookies, evaluate roles, or decide expiry. Those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import agencyAuth, cookie, or middleware (no upward imports).
//   - Perform application-level authorization decisions.
//   - Store plaintext secrets in [Session] fields.
package session
