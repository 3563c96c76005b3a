// Package middleware exposes HTTP adapters over agencyAuth.Engine.
//
// # Guards
//
//   - [Guard]: enforce a GuardKind on every request.
//   - [RequireLogin], [RequireAdmin], [RequireFinancial]: the three fixed kinds.
//
// Each guard reads the session cookie, calls Engine.Guard, and injects the
// allowed Identity into the request context. Denials under the API prefix
// are JSON {"msg": ...} with 401 or 403; all others are redirects, with a
// flash message for expiry and missing permissions.
//
// # Login plumbing
//
// [Capture] feeds the client IP and the prior session cookie to
// Engine.Authenticate; [CompleteLogin] and [CompleteLogout] write cookies and
// flash messages.
//
// # What this package must NOT do
//
//   - Decode session cookies or read Redis (Engine handles both).
//   - Make authorization decisions beyond rendering Engine.Guard's decision.
package middleware
