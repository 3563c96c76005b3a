package agencyAuth

import (
	"errors"
	"time"

	"github.com/MrEthical07/agencyAuth/cookie"
	"github.com/MrEthical07/agencyAuth/internal/rate"
	"github.com/MrEthical07/agencyAuth/password"
	"github.com/MrEthical07/agencyAuth/session"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Builder assembles an Engine. A Builder is single-use: Build fails on the
// second call.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	sessions    SessionStore
	credentials CredentialStore
	parents     ParentEntityStore
	auditSink   AuditSink
	logger      logrus.FieldLogger
	clock       func() time.Time

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used by the session store and the Redis login
// throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore overrides the Redis session store.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.sessions = store
	return b
}

// WithCredentialStore sets the credential lookup. Stores that also implement
// CredentialCreator enable Engine.Register; stores that implement
// ParentEntityStore are used for the parent check unless one is set
// explicitly.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithParentEntityStore sets the live parent entity lookup.
func (b *Builder) WithParentEntityStore(store ParentEntityStore) *Builder {
	b.parents = store
	return b
}

// WithLogger sets the logger for warnings and rehash failures. Defaults to
// logrus.StandardLogger.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now for session timestamps and the guard's age
// check.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
//
// Build may return an error when the configuration is invalid or a required
// dependency is missing. It starts the rehash and audit workers; call
// Engine.Close to stop them.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}

	if b.redis == nil {
		if b.sessions == nil {
			return nil, errors.New("redis client required")
		}
		if cfg.RateLimit.Enabled && cfg.RateLimit.Backend == RateLimitRedis {
			return nil, errors.New("RateLimit redis backend requires redis client")
		}
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	// -------- SESSION STORE --------
	sessions := b.sessions
	if sessions == nil {
		sessions = session.NewStore(b.redis, cfg.Session.RedisPrefix)
	}

	// -------- COOKIE CODEC --------
	codec, err := cookie.NewCodec(cookie.Config{
		SecretKey:    cloneBytes(cfg.Cookie.SecretKey),
		KeyID:        cfg.Cookie.KeyID,
		VerifyKeys:   cfg.Cookie.VerifyKeys,
		Issuer:       cfg.Cookie.Issuer,
		MaxFutureIAT: cfg.Cookie.MaxFutureIAT,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORD HASHER --------
	hasher, err := password.NewHasher(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:      cfg,
		sessions:    sessions,
		codec:       codec,
		hasher:      hasher,
		credentials: b.credentials,
		log:         logger,
		clock:       clock,
	}

	if creator, ok := b.credentials.(CredentialCreator); ok {
		engine.creator = creator
	}
	engine.parents = b.parents
	if engine.parents == nil {
		if ps, ok := b.credentials.(ParentEntityStore); ok {
			engine.parents = ps
		}
	}
	if lister, ok := engine.parents.(ParentEntityLister); ok {
		engine.lister = lister
	} else if lister, ok := b.credentials.(ParentEntityLister); ok {
		engine.lister = lister
	}

	// -------- LOGIN THROTTLE --------
	if cfg.RateLimit.Enabled {
		rc := rate.Config{
			Prefix:           cfg.Session.RedisPrefix,
			Windows:          make([]rate.Window, 0, len(cfg.RateLimit.Windows)),
			EnableIPThrottle: cfg.RateLimit.EnableIPThrottle,
		}
		for _, w := range cfg.RateLimit.Windows {
			rc.Windows = append(rc.Windows, rate.Window{Max: w.Max, Period: w.Period})
		}
		switch cfg.RateLimit.Backend {
		case RateLimitMemory:
			engine.limiter = rate.NewMemory(rc, cfg.RateLimit.MemoryCapacity)
		default:
			engine.limiter = rate.New(b.redis, rc)
		}
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	if cfg.Password.UpgradeOnLogin {
		engine.rehash = newRehashDispatcher(cfg.Rehash, hasher.Hash, b.credentials, logger, engine.rehashDone)
	}

	b.built = true

	return engine, nil
}
