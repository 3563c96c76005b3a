package agencyAuth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity uint8

const (
	LintInfo LintSeverity = iota
	LintMedium
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintHigh:
		return "HIGH"
	case LintMedium:
		return "MEDIUM"
	default:
		return "INFO"
	}
}

// LintWarning is one questionable but valid setting.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

type LintWarnings []LintWarning

func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (ws LintWarnings) BySeverity(min LintSeverity) LintWarnings {
	var out LintWarnings
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins every warning at or above min into one error, or nil.
func (ws LintWarnings) AsError(min LintSeverity) error {
	hits := ws.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(hits))
	for _, w := range hits {
		msgs = append(msgs, w.Severity.String()+" "+w.Code+": "+w.Message)
	}
	return errors.New("config lint: " + strings.Join(msgs, "; "))
}

// argon2MinMemoryKB is the OWASP floor for Argon2id with t=2.
const argon2MinMemoryKB = 19 * 1024

// Lint reports settings that pass Validate but weaken the deployment.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if !c.RateLimit.Enabled {
		add("rate_limits_disabled", LintHigh, "failed logins are not throttled")
	} else {
		if !c.RateLimit.EnableIPThrottle {
			add("ip_throttle_disabled", LintInfo, "only per-identifier throttling is active")
		}
		if c.RateLimit.Backend == RateLimitMemory {
			add("rate_limit_memory_backend", LintInfo, "throttle counters are per process")
		}
	}

	if !c.Cookie.Secure {
		add("cookie_insecure", LintMedium, "session cookie is sent over plain HTTP")
	}
	if !c.Cookie.HTTPOnly {
		add("cookie_script_readable", LintHigh, "session cookie is readable by scripts")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode {
		add("cookie_samesite_none", LintMedium, "session cookie is sent on cross-site requests")
	}

	if c.Session.Lifetime > 12*time.Hour {
		add("session_lifetime_long", LintMedium, "sessions live longer than 12h")
	}
	if c.Session.RetentionGrace == 0 {
		add("retention_grace_zero", LintInfo, "aged-out sessions are reported as missing, not expired")
	}
	if !c.Session.Permanent {
		add("session_not_permanent", LintInfo, "session age is not enforced by the guard")
	}

	if !c.Password.UpgradeOnLogin {
		add("rehash_disabled", LintMedium, "legacy password hashes are never migrated")
	}
	if c.Password.Memory < argon2MinMemoryKB {
		add("argon2_memory_low", LintMedium, "Argon2id memory is below 19 MiB")
	}

	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "security events are not audited")
	}

	return ws
}
