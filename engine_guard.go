package agencyAuth

import (
	"context"
	"errors"
	"time"

	internalflows "github.com/MrEthical07/agencyAuth/internal/flows"
	"github.com/MrEthical07/agencyAuth/session"
)

// Guard decides whether the request carrying token may reach a route
// protected by kind. token is the raw session cookie value.
//
// An aged-out permanent session is destroyed before DispositionExpired is
// returned. Store failures deny as DispositionUnauthenticated.
func (e *Engine) Guard(ctx context.Context, token string, kind GuardKind) Decision {
	if e == nil {
		return Decision{
			Disposition: DispositionUnauthenticated,
			Message:     MsgUnauthenticated,
			Err:         ErrEngineNotReady,
		}
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricGuardLatency, time.Since(start))
		}()
	}

	allowed := kind.Roles()
	sess, err := internalflows.RunGuard(ctx, token, func(role string) bool {
		r, ok := ParseRole(role)
		return ok && allowed.Contains(r)
	}, e.guardFlowDeps())

	switch {
	case err == nil:
		e.metricInc(MetricGuardAllow)
		return Decision{
			Disposition: DispositionAllow,
			Identity:    identityFromSession(sess),
		}
	case errors.Is(err, ErrSessionExpired):
		e.metricInc(MetricGuardExpired)
		e.emitAudit(ctx, auditEventSessionExpired, false, "", "", err, nil)
		return Decision{
			Disposition: DispositionExpired,
			Message:     MsgSessionExpired,
			Err:         err,
		}
	case errors.Is(err, ErrForbidden):
		e.metricInc(MetricGuardForbidden)
		e.emitAudit(ctx, auditEventGuardDenied, false, sess.SubjectID, sess.ID, err, func() map[string]string {
			return map[string]string{
				"guard": kind.String(),
				"role":  sess.Role,
			}
		})
		return Decision{
			Disposition: DispositionForbidden,
			Message:     MsgForbidden,
			Err:         err,
		}
	default:
		e.metricInc(MetricGuardUnauthenticated)
		return Decision{
			Disposition: DispositionUnauthenticated,
			Message:     MsgUnauthenticated,
			Err:         err,
		}
	}
}

func (e *Engine) guardFlowDeps() internalflows.GuardDeps {
	return internalflows.GuardDeps{
		Lifetime:      e.config.Session.Lifetime,
		Now:           e.now,
		DecodeToken:   e.codec.Decode,
		GetSession:    e.sessions.Get,
		DeleteSession: e.sessions.Delete,
		Warn:          e.warnf,
		Errors: internalflows.GuardErrors{
			Unauthenticated: ErrUnauthenticated,
			SessionExpired:  ErrSessionExpired,
			Forbidden:       ErrForbidden,
		},
	}
}

func identityFromSession(sess *session.Session) *Identity {
	role, _ := ParseRole(sess.Role)
	return &Identity{
		SessionID:        sess.ID,
		SubjectID:        sess.SubjectID,
		Role:             role,
		ParentEntityID:   sess.ParentEntityID,
		ParentEntityName: sess.ParentEntityName,
		FirstName:        sess.FirstName,
		LastName:         sess.LastName,
		Email:            sess.Email,
		Phone:            sess.Phone,
	}
}
