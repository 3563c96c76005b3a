// Package internal contains helpers private to agencyAuth: session ID
// generation and the sub-packages below.
//
// # Sub-packages
//
//   - flows: pure-function orchestrators for login, guard, logout and registration
//   - rate: fixed-window login throttles, Redis-backed or in-process
//
// Nothing here appears in the public agencyAuth API.
package internal
