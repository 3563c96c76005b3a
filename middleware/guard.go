package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	agencyAuth "github.com/MrEthical07/agencyAuth"
	"github.com/MrEthical07/agencyAuth/cookie"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity attached by a guard.
func IdentityFromContext(ctx context.Context) (*agencyAuth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*agencyAuth.Identity)
	return id, ok && id != nil
}

// Guard returns middleware enforcing kind on every request. Requests under
// Routes.APIPrefix are denied with a JSON body; all others are redirected.
func Guard(engine *agencyAuth.Engine, kind agencyAuth.GuardKind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeJSON(w, http.StatusUnauthorized, agencyAuth.MsgUnauthenticated)
				return
			}

			policy := engine.CookiePolicy()
			decision := engine.Guard(r.Context(), cookie.Read(r, policy), kind)
			if decision.Allowed() {
				ctx := context.WithValue(r.Context(), identityContextKey{}, decision.Identity)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			deny(w, r, engine, decision)
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, engine *agencyAuth.Engine, d agencyAuth.Decision) {
	routes := engine.Routes()
	policy := engine.CookiePolicy()
	api := strings.HasPrefix(r.URL.Path, routes.APIPrefix)

	switch d.Disposition {
	case agencyAuth.DispositionExpired:
		cookie.Clear(w, policy)
		if api {
			writeJSON(w, http.StatusUnauthorized, agencyAuth.MsgSessionExpiredAPI)
			return
		}
		SetFlash(w, policy, FlashWarning, agencyAuth.MsgSessionExpired)
		http.Redirect(w, r, routes.LoginPath, http.StatusFound)
	case agencyAuth.DispositionForbidden:
		if api {
			writeJSON(w, http.StatusForbidden, agencyAuth.MsgForbidden)
			return
		}
		SetFlash(w, policy, FlashError, agencyAuth.MsgForbidden)
		http.Redirect(w, r, routes.ForbiddenRedirect, http.StatusFound)
	default:
		if api {
			writeJSON(w, http.StatusUnauthorized, agencyAuth.MsgUnauthenticated)
			return
		}
		http.Redirect(w, r, routes.LoginPath, http.StatusFound)
	}
}

type messageBody struct {
	Msg string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(messageBody{Msg: msg})
}
