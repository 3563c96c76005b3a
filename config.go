package agencyAuth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/agencyAuth/cookie"
)

// Config holds every tunable of the engine. Build one from
// DevelopmentConfig or ProductionConfig and adjust.
type Config struct {
	Session      SessionConfig
	Cookie       CookieConfig
	Password     PasswordConfig
	Routes       RoutesConfig
	RateLimit    RateLimitConfig
	Rehash       RehashConfig
	Registration RegistrationConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime and Redis retention.
//
// Lifetime is enforced by the guard for permanent sessions. RetentionGrace is
// added to the Redis TTL so the guard can still find an aged-out session and
// report it as expired rather than missing.
type SessionConfig struct {
	Lifetime       time.Duration
	RetentionGrace time.Duration
	RedisPrefix    string
	Permanent      bool
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the session cookie and its signature.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite

	SecretKey    []byte
	KeyID        string
	VerifyKeys   map[string][]byte
	Issuer       string
	MaxFutureIAT time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig is the target Argon2id cost. Hashes below it are upgraded
// on login when UpgradeOnLogin is set.
type PasswordConfig struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
	UpgradeOnLogin   bool
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig names the redirect targets produced by the engine and the
// path prefix treated as the API surface by the middleware.
type RoutesConfig struct {
	LoginPath         string
	AdminLanding      string
	EmployeeLanding   string
	ForbiddenRedirect string
	APIPrefix         string
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitBackend selects where failed-login counters live.
type RateLimitBackend string

const (
	RateLimitRedis  RateLimitBackend = "redis"
	RateLimitMemory RateLimitBackend = "memory"
)

// RateWindow allows Max failed attempts per Period.
type RateWindow struct {
	Max    int
	Period time.Duration
}

// RateLimitConfig throttles failed logins per identifier and, optionally, per
// client IP.
type RateLimitConfig struct {
	Enabled          bool
	Backend          RateLimitBackend
	Windows          []RateWindow
	EnableIPThrottle bool
	MemoryCapacity   int
}

/*
====================================
REHASH CONFIG
====================================
*/

// RehashConfig sizes the background rehash dispatcher.
type RehashConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

/*
====================================
REGISTRATION CONFIG
====================================
*/

type RegistrationConfig struct {
	Enabled           bool
	MinPasswordLength int
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig defines a public type used by agencyAuth APIs.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by agencyAuth APIs.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			Lifetime:       time.Hour,
			RetentionGrace: time.Hour,
			RedisPrefix:    "aa",
			Permanent:      true,
		},
		Cookie: CookieConfig{
			Name:         "session",
			Path:         "/",
			Secure:       true,
			HTTPOnly:     true,
			SameSite:     http.SameSiteLaxMode,
			Issuer:       "agencyauth",
			MaxFutureIAT: time.Minute,
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: 1024,
			UpgradeOnLogin:   true,
		},
		Routes: RoutesConfig{
			LoginPath:         "/login",
			AdminLanding:      "/admin/panel",
			EmployeeLanding:   "/dashboard",
			ForbiddenRedirect: "/dashboard",
			APIPrefix:         "/api/",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Backend: RateLimitRedis,
			Windows: []RateWindow{
				{Max: 5, Period: time.Minute},
				{Max: 20, Period: time.Hour},
			},
			EnableIPThrottle: true,
			MemoryCapacity:   10000,
		},
		Rehash: RehashConfig{
			Workers:   2,
			QueueSize: 256,
			Timeout:   10 * time.Second,
		},
		Registration: RegistrationConfig{
			Enabled:           true,
			MinPasswordLength: 8,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DevelopmentConfig returns the development preset: two hour sessions.
func DevelopmentConfig() Config {
	cfg := defaultConfig()
	cfg.Session.Lifetime = 2 * time.Hour
	return cfg
}

// ProductionConfig returns the production preset: one hour sessions, audit
// and metrics on.
func ProductionConfig() Config {
	cfg := defaultConfig()
	cfg.Session.Lifetime = time.Hour
	cfg.Cookie.Secure = true
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Cookie.SecretKey = cloneBytes(cfg.Cookie.SecretKey)
	if cfg.Cookie.VerifyKeys != nil {
		out.Cookie.VerifyKeys = make(map[string][]byte, len(cfg.Cookie.VerifyKeys))
		for kid, key := range cfg.Cookie.VerifyKeys {
			out.Cookie.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	if cfg.RateLimit.Windows != nil {
		out.RateLimit.Windows = append([]RateWindow(nil), cfg.RateLimit.Windows...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Session
	if c.Session.Lifetime <= 0 {
		return errors.New("Session Lifetime must be > 0")
	}
	if c.Session.RetentionGrace < 0 {
		return errors.New("Session RetentionGrace must be >= 0")
	}
	if c.Session.RedisPrefix == "" || strings.ContainsAny(c.Session.RedisPrefix, " :") {
		return errors.New("Session RedisPrefix must be non-empty and contain no spaces or colons")
	}

	// Cookie
	if c.Cookie.Name == "" {
		return errors.New("Cookie Name must be set")
	}
	if len(c.Cookie.SecretKey) < cookie.MinSecretBytes {
		return errors.New("Cookie SecretKey must be at least 32 bytes")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}
	if c.Cookie.MaxFutureIAT < 0 {
		return errors.New("Cookie MaxFutureIAT must be >= 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Routes
	routes := [...]struct {
		name string
		path string
	}{
		{"LoginPath", c.Routes.LoginPath},
		{"AdminLanding", c.Routes.AdminLanding},
		{"EmployeeLanding", c.Routes.EmployeeLanding},
		{"ForbiddenRedirect", c.Routes.ForbiddenRedirect},
		{"APIPrefix", c.Routes.APIPrefix},
	}
	for _, r := range routes {
		if !strings.HasPrefix(r.path, "/") {
			return errors.New("Routes " + r.name + " must start with /")
		}
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.Backend != RateLimitRedis && c.RateLimit.Backend != RateLimitMemory {
			return errors.New("RateLimit Backend must be 'redis' or 'memory'")
		}
		if len(c.RateLimit.Windows) == 0 {
			return errors.New("RateLimit Windows must not be empty when enabled")
		}
		for _, w := range c.RateLimit.Windows {
			if w.Max <= 0 || w.Period <= 0 {
				return errors.New("RateLimit window Max and Period must be > 0")
			}
		}
		if c.RateLimit.Backend == RateLimitMemory && c.RateLimit.MemoryCapacity <= 0 {
			return errors.New("RateLimit MemoryCapacity must be > 0 for the memory backend")
		}
	}

	// Rehash
	if c.Password.UpgradeOnLogin {
		if c.Rehash.Workers <= 0 {
			return errors.New("Rehash Workers must be > 0")
		}
		if c.Rehash.QueueSize <= 0 {
			return errors.New("Rehash QueueSize must be > 0")
		}
		if c.Rehash.Timeout <= 0 {
			return errors.New("Rehash Timeout must be > 0")
		}
	}

	// Registration
	if c.Registration.Enabled && c.Registration.MinPasswordLength < 1 {
		return errors.New("Registration MinPasswordLength must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}

// sessionTTL is the Redis retention of a session key.
func (c *Config) sessionTTL() time.Duration {
	return c.Session.Lifetime + c.Session.RetentionGrace
}
