package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/agencyAuth/session"
)

// GuardErrors carries host-level sentinel errors used by the guard flow.
type GuardErrors struct {
	Unauthenticated error
	SessionExpired  error
	Forbidden       error
}

// GuardDeps captures guard dependencies.
type GuardDeps struct {
	Lifetime time.Duration

	Now           func() time.Time
	DecodeToken   func(string) (string, error)
	GetSession    func(context.Context, string) (*session.Session, error)
	DeleteSession func(context.Context, string) error
	Warn          func(string, ...any)

	Errors GuardErrors
}

// RunGuard resolves token to a live session and checks its role against
// allowed. A nil allowed admits every role. The returned session is non-nil
// only when err is nil, except for Forbidden where it identifies the caller.
func RunGuard(ctx context.Context, token string, allowed func(role string) bool, deps GuardDeps) (*session.Session, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.DecodeToken == nil || deps.GetSession == nil {
		return nil, deps.Errors.Unauthenticated
	}

	if token == "" {
		return nil, deps.Errors.Unauthenticated
	}

	sessionID, err := deps.DecodeToken(token)
	if err != nil || sessionID == "" {
		return nil, deps.Errors.Unauthenticated
	}

	sess, err := deps.GetSession(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			deps.Warn("agencyAuth: session lookup failed: %v", err)
		}
		return nil, deps.Errors.Unauthenticated
	}
	if sess == nil {
		return nil, deps.Errors.Unauthenticated
	}

	if sess.Expired(deps.Now(), deps.Lifetime) {
		if deps.DeleteSession != nil {
			if err := deps.DeleteSession(ctx, sessionID); err != nil {
				deps.Warn("agencyAuth: expired session cleanup failed: %v", err)
			}
		}
		return nil, deps.Errors.SessionExpired
	}

	if allowed != nil && !allowed(sess.Role) {
		return sess, deps.Errors.Forbidden
	}

	return sess, nil
}
