// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunGuard, RunRegister, RunLogout) accepts a
// typed dependency struct and returns results without side-effects beyond
// those dependencies. The Engine stays thin and every gate can be tested with
// plain function fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, cookie codec, password
// hasher, rate limiter, audit dispatcher and metrics. They do NOT own any of
// these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import agencyAuth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
