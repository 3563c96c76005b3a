package cookie

import (
	"net/http"
	"time"
)

// Policy describes how the session cookie is written.
type Policy struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// DefaultPolicy is HttpOnly, Secure, SameSite=Lax under the name "session".
func DefaultPolicy() Policy {
	return Policy{
		Name:     "session",
		Path:     "/",
		Secure:   true,
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Set writes value as the session cookie. maxAge <= 0 produces a browser
// session cookie.
func Set(w http.ResponseWriter, p Policy, value string, maxAge time.Duration) {
	c := &http.Cookie{
		Name:     p.Name,
		Value:    value,
		Path:     p.Path,
		Domain:   p.Domain,
		Secure:   p.Secure,
		HttpOnly: p.HTTPOnly,
		SameSite: p.SameSite,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge / time.Second)
		c.Expires = time.Now().Add(maxAge)
	}
	http.SetCookie(w, c)
}

// Clear expires the session cookie on the client.
func Clear(w http.ResponseWriter, p Policy) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.Name,
		Value:    "",
		Path:     p.Path,
		Domain:   p.Domain,
		Secure:   p.Secure,
		HttpOnly: p.HTTPOnly,
		SameSite: p.SameSite,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// Read returns the raw session cookie value, or "" when absent.
func Read(r *http.Request, p Policy) string {
	c, err := r.Cookie(p.Name)
	if err != nil {
		return ""
	}
	return c.Value
}
