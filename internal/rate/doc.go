// Package rate throttles failed logins.
//
// # Backends
//
//   - [Limiter]: Redis fixed-window counters, INCR + conditional EXPIRE on the
//     first hit. Keys: <prefix>:al:<identifier>:<window seconds> and
//     <prefix>:ali:<ip>:<window seconds>.
//   - [MemoryLimiter]: x/time/rate token buckets in a bounded expirable LRU,
//     for single-process deployments and tests.
//
// Both count failures only; a successful login resets the identifier.
//
// # What this package must NOT do
//
//   - Decide what a caller shows to the user.
//   - Be imported outside the agencyAuth module.
package rate
