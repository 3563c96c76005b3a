package middleware

import (
	"net/http"

	agencyAuth "github.com/MrEthical07/agencyAuth"
)

// RequireLogin admits any authenticated role.
func RequireLogin(engine *agencyAuth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, agencyAuth.GuardPlain)
}

// RequireAdmin admits admin only.
func RequireAdmin(engine *agencyAuth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, agencyAuth.GuardAdmin)
}

// RequireFinancial admits admin and accountant.
func RequireFinancial(engine *agencyAuth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, agencyAuth.GuardFinancial)
}
