package middleware

import (
	"net"
	"net/http"

	agencyAuth "github.com/MrEthical07/agencyAuth"
	"github.com/MrEthical07/agencyAuth/cookie"
)

// Capture attaches the client IP and the incoming session cookie to the
// request context so Authenticate can throttle by IP and replace the prior
// session. Mount it in front of the login handler.
func Capture(engine *agencyAuth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := agencyAuth.WithClientIP(r.Context(), clientIP(r))
			if engine != nil {
				if token := cookie.Read(r, engine.CookiePolicy()); token != "" {
					ctx = agencyAuth.WithSessionToken(ctx, token)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CompleteLogin writes the outcome of Authenticate to the response: the
// session cookie and a flash on success, a flash on rejection. It returns
// the redirect target, or "" when the login page should be shown again.
func CompleteLogin(w http.ResponseWriter, engine *agencyAuth.Engine, res *agencyAuth.AuthResult) string {
	policy := engine.CookiePolicy()
	if !res.Authenticated() {
		SetFlash(w, policy, FlashError, res.Message)
		return ""
	}
	cookie.Set(w, policy, res.Token, engine.CookieMaxAge())
	SetFlash(w, policy, FlashSuccess, res.Message)
	return res.RedirectTarget
}

// CompleteLogout destroys the request's session and clears the cookie.
func CompleteLogout(w http.ResponseWriter, r *http.Request, engine *agencyAuth.Engine) error {
	policy := engine.CookiePolicy()
	err := engine.Logout(r.Context(), cookie.Read(r, policy))
	cookie.Clear(w, policy)
	if err == nil {
		SetFlash(w, policy, FlashInfo, agencyAuth.MsgLoggedOut)
	}
	return err
}

// clientIP uses the connection address only; forwarded headers are left to a
// trusted proxy layer.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
