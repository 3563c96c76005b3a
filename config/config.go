// Package config loads deployment settings for agencyAuth binaries.
//
// Settings come from an optional YAML file, then from environment variables.
// The environment always wins. APP_ENV selects the preset the engine
// configuration starts from: "production" uses agencyAuth.ProductionConfig,
// anything else agencyAuth.DevelopmentConfig.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	agencyAuth "github.com/MrEthical07/agencyAuth"
)

// Environment is the deployment type.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Environment variables read by Load.
const (
	EnvSecretKey    = "SECRET_KEY"
	EnvDatabaseURL  = "DATABASE_URL"
	EnvRedisURL     = "REDIS_URL"
	EnvLoginURL     = "LOGIN_URL"
	EnvDashboardURL = "DASHBOARD_URL"
	EnvAppEnv       = "APP_ENV"
	EnvPort         = "PORT"
)

// File is the on-disk layout. Zero values and nil pointers leave the preset
// untouched.
type File struct {
	Environment Environment `yaml:"environment"`
	Listen      string      `yaml:"listen"`
	DatabaseURL string      `yaml:"database_url"`
	RedisURL    string      `yaml:"redis_url"`
	SecretKey   string      `yaml:"secret_key"`

	Session      SessionSection      `yaml:"session"`
	Cookie       CookieSection       `yaml:"cookie"`
	Routes       RoutesSection       `yaml:"routes"`
	Password     PasswordSection     `yaml:"password"`
	RateLimit    RateLimitSection    `yaml:"rate_limit"`
	Registration RegistrationSection `yaml:"registration"`
	Audit        AuditSection        `yaml:"audit"`
	Metrics      MetricsSection      `yaml:"metrics"`
	ParentCache  ParentCacheSection  `yaml:"parent_cache"`
}

type SessionSection struct {
	Lifetime       time.Duration `yaml:"lifetime"`
	RetentionGrace time.Duration `yaml:"retention_grace"`
	RedisPrefix    string        `yaml:"redis_prefix"`
	Permanent      *bool         `yaml:"permanent"`
}

type CookieSection struct {
	Name     string `yaml:"name"`
	Domain   string `yaml:"domain"`
	Secure   *bool  `yaml:"secure"`
	SameSite string `yaml:"same_site"`
}

type RoutesSection struct {
	LoginPath         string `yaml:"login_path"`
	AdminLanding      string `yaml:"admin_landing"`
	EmployeeLanding   string `yaml:"employee_landing"`
	ForbiddenRedirect string `yaml:"forbidden_redirect"`
	APIPrefix         string `yaml:"api_prefix"`
}

type PasswordSection struct {
	Memory         uint32 `yaml:"memory_kib"`
	Time           uint32 `yaml:"time"`
	Parallelism    uint8  `yaml:"parallelism"`
	UpgradeOnLogin *bool  `yaml:"upgrade_on_login"`
}

type RateLimitSection struct {
	Enabled    *bool  `yaml:"enabled"`
	Backend    string `yaml:"backend"`
	PerMinute  int    `yaml:"per_minute"`
	PerHour    int    `yaml:"per_hour"`
	IPThrottle *bool  `yaml:"ip_throttle"`
}

type RegistrationSection struct {
	Enabled           *bool `yaml:"enabled"`
	MinPasswordLength int   `yaml:"min_password_length"`
}

type AuditSection struct {
	Enabled    *bool `yaml:"enabled"`
	BufferSize int   `yaml:"buffer_size"`
}

type MetricsSection struct {
	Enabled           *bool `yaml:"enabled"`
	LatencyHistograms *bool `yaml:"latency_histograms"`
}

// ParentCacheSection sizes the agency status cache. A zero TTL disables it.
type ParentCacheSection struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// Load reads path (skipped when empty) and applies the process environment.
func Load(path string) (*File, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*File, error) {
	f := &File{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if lookup != nil {
		f.applyEnv(lookup)
	}
	if f.Environment == "" {
		f.Environment = Development
	}
	if f.Environment != Development && f.Environment != Production {
		return nil, fmt.Errorf("unknown environment %q", f.Environment)
	}
	if f.Listen == "" {
		f.Listen = ":8080"
	}
	return f, nil
}

func (f *File) applyEnv(lookup func(string) (string, bool)) {
	set := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	var env string
	set(EnvAppEnv, &env)
	if env != "" {
		f.Environment = Environment(strings.ToLower(env))
	}
	set(EnvSecretKey, &f.SecretKey)
	set(EnvDatabaseURL, &f.DatabaseURL)
	set(EnvRedisURL, &f.RedisURL)
	set(EnvLoginURL, &f.Routes.LoginPath)
	set(EnvDashboardURL, &f.Routes.EmployeeLanding)

	var port string
	set(EnvPort, &port)
	if port != "" {
		f.Listen = ":" + strings.TrimPrefix(port, ":")
	}
}

// EngineConfig builds and validates the engine configuration.
func (f *File) EngineConfig() (agencyAuth.Config, error) {
	cfg := agencyAuth.DevelopmentConfig()
	if f.Environment == Production {
		cfg = agencyAuth.ProductionConfig()
	}

	if f.SecretKey != "" {
		cfg.Cookie.SecretKey = []byte(f.SecretKey)
	}

	s := f.Session
	setDuration(&cfg.Session.Lifetime, s.Lifetime)
	setDuration(&cfg.Session.RetentionGrace, s.RetentionGrace)
	setString(&cfg.Session.RedisPrefix, s.RedisPrefix)
	setBool(&cfg.Session.Permanent, s.Permanent)

	c := f.Cookie
	setString(&cfg.Cookie.Name, c.Name)
	setString(&cfg.Cookie.Domain, c.Domain)
	setBool(&cfg.Cookie.Secure, c.Secure)
	if c.SameSite != "" {
		mode, err := parseSameSite(c.SameSite)
		if err != nil {
			return agencyAuth.Config{}, err
		}
		cfg.Cookie.SameSite = mode
	}

	r := f.Routes
	setString(&cfg.Routes.LoginPath, r.LoginPath)
	setString(&cfg.Routes.AdminLanding, r.AdminLanding)
	setString(&cfg.Routes.EmployeeLanding, r.EmployeeLanding)
	setString(&cfg.Routes.ForbiddenRedirect, r.ForbiddenRedirect)
	setString(&cfg.Routes.APIPrefix, r.APIPrefix)

	p := f.Password
	if p.Memory > 0 {
		cfg.Password.Memory = p.Memory
	}
	if p.Time > 0 {
		cfg.Password.Time = p.Time
	}
	if p.Parallelism > 0 {
		cfg.Password.Parallelism = p.Parallelism
	}
	setBool(&cfg.Password.UpgradeOnLogin, p.UpgradeOnLogin)

	rl := f.RateLimit
	setBool(&cfg.RateLimit.Enabled, rl.Enabled)
	if rl.Backend != "" {
		cfg.RateLimit.Backend = agencyAuth.RateLimitBackend(strings.ToLower(rl.Backend))
	}
	if rl.PerMinute > 0 || rl.PerHour > 0 {
		cfg.RateLimit.Windows = nil
		if rl.PerMinute > 0 {
			cfg.RateLimit.Windows = append(cfg.RateLimit.Windows, agencyAuth.RateWindow{Max: rl.PerMinute, Period: time.Minute})
		}
		if rl.PerHour > 0 {
			cfg.RateLimit.Windows = append(cfg.RateLimit.Windows, agencyAuth.RateWindow{Max: rl.PerHour, Period: time.Hour})
		}
	}
	setBool(&cfg.RateLimit.EnableIPThrottle, rl.IPThrottle)

	setBool(&cfg.Registration.Enabled, f.Registration.Enabled)
	if f.Registration.MinPasswordLength > 0 {
		cfg.Registration.MinPasswordLength = f.Registration.MinPasswordLength
	}

	setBool(&cfg.Audit.Enabled, f.Audit.Enabled)
	if f.Audit.BufferSize > 0 {
		cfg.Audit.BufferSize = f.Audit.BufferSize
	}

	setBool(&cfg.Metrics.Enabled, f.Metrics.Enabled)
	setBool(&cfg.Metrics.EnableLatencyHistograms, f.Metrics.LatencyHistograms)

	if err := cfg.Validate(); err != nil {
		return agencyAuth.Config{}, fmt.Errorf("invalid engine config: %w", err)
	}
	return cfg, nil
}

// ErrUnknownSameSite is returned for a cookie.same_site value other than
// lax, strict or none.
var ErrUnknownSameSite = errors.New("unknown same_site mode")

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSameSite, v)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}
