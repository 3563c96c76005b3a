// Package cookie signs the session cookie value and reads or writes the cookie
// on HTTP exchanges.
//
// The cookie value is an HS256 JWT whose only claim of interest is the
// server-side session ID. Identity, role and expiry live in the session store.
package cookie
