package agencyAuth

import (
	"context"
	"time"

	"github.com/MrEthical07/agencyAuth/cookie"
	"github.com/MrEthical07/agencyAuth/password"
	"github.com/sirupsen/logrus"
)

// loginLimiter is satisfied by the Redis and in-memory throttles.
type loginLimiter interface {
	CheckLogin(ctx context.Context, identifier, ip string) error
	IncrementLogin(ctx context.Context, identifier, ip string) error
	ResetLogin(ctx context.Context, identifier, ip string) error
}

// Engine is the authentication and access-control core.
//
// Engine instances are built once through [Builder.Build] and are safe for
// concurrent use afterwards.
type Engine struct {
	config      Config
	sessions    SessionStore
	codec       *cookie.Codec
	hasher      *password.Hasher
	credentials CredentialStore
	creator     CredentialCreator
	parents     ParentEntityStore
	lister      ParentEntityLister
	limiter     loginLimiter
	rehash      *rehashDispatcher
	audit       *auditDispatcher
	metrics     *Metrics
	log         logrus.FieldLogger
	clock       func() time.Time
}

// Close drains the rehash queue, then the audit queue. The Engine must not
// be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.rehash != nil {
		e.rehash.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// RehashDropped returns the number of rehash jobs refused by a full queue.
func (e *Engine) RehashDropped() uint64 {
	if e == nil || e.rehash == nil {
		return 0
	}
	return e.rehash.Dropped()
}

// MetricsSnapshot copies the current counters and histograms. It is safe for
// concurrent use.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Routes returns the configured redirect targets.
func (e *Engine) Routes() RoutesConfig {
	return e.config.Routes
}

// CookiePolicy returns the attributes the session cookie must be written
// with.
func (e *Engine) CookiePolicy() cookie.Policy {
	return cookie.Policy{
		Name:     e.config.Cookie.Name,
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		Secure:   e.config.Cookie.Secure,
		HTTPOnly: e.config.Cookie.HTTPOnly,
		SameSite: e.config.Cookie.SameSite,
	}
}

// CookieMaxAge is the session cookie lifetime: Session.Lifetime for
// permanent sessions, zero (browser session) otherwise.
func (e *Engine) CookieMaxAge() time.Duration {
	if !e.config.Session.Permanent {
		return 0
	}
	return e.config.Session.Lifetime
}

// LandingFor returns the post-login redirect target of role.
func (e *Engine) LandingFor(role Role) string {
	switch role {
	case RoleAdmin, RoleAccountant:
		return e.config.Routes.AdminLanding
	default:
		return e.config.Routes.EmployeeLanding
	}
}

// ActiveParentEntities lists the parent entities a new account may join.
// Without a lister it returns an empty list.
func (e *Engine) ActiveParentEntities(ctx context.Context) ([]ParentEntity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.lister == nil {
		return []ParentEntity{}, nil
	}
	entities, err := e.lister.ActiveParentEntities(ctx)
	if err != nil {
		e.log.WithError(err).Warn("agencyAuth: parent entity listing failed")
		return nil, ErrRegistrationUnavailable
	}
	return entities, nil
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

func (e *Engine) warnf(format string, args ...any) {
	e.log.Warnf(format, args...)
}

// rehashDone records the outcome of one background rehash.
func (e *Engine) rehashDone(ctx context.Context, subjectID string, err error) {
	if err != nil {
		e.metricInc(MetricRehashFailure)
		e.emitAudit(ctx, auditEventRehashFailure, false, subjectID, "", err, nil)
		return
	}
	e.metricInc(MetricRehashSuccess)
	e.emitAudit(ctx, auditEventRehashSuccess, true, subjectID, "", nil, nil)
}

// sessionIDFromToken decodes a cookie value. Invalid values yield "".
func (e *Engine) sessionIDFromToken(token string) string {
	if token == "" {
		return ""
	}
	id, err := e.codec.Decode(token)
	if err != nil {
		return ""
	}
	return id
}
