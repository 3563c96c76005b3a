// Package agencyAuth is the authentication and access-control core of an
// agency-management backend: dual-scheme password verification with
// transparent migration, Redis-backed server-side sessions, a login state
// machine and role guards.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// agencyAuth is the public surface. It exposes [Engine], [Builder], [Config],
// the consumed store interfaces ([CredentialStore], [ParentEntityStore],
// [SessionStore]) and value types ([AuthResult], [Decision], [Identity]).
// Flow orchestration, rate limiting and session ID generation live under
// internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Log or audit plaintext passwords, password hashes or cookie values.
//   - Tell an unknown identifier apart from a wrong password in a result.
//   - Import any sub-package that re-imports agencyAuth (no import cycles).
//
// # Performance contract
//
// Guard is the hot path: one signature check and one Redis GET. Authenticate
// is dominated by the password hash; hash upgrades run on background workers.
package agencyAuth
