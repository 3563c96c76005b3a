package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/agencyAuth/session"
)

type LogoutSessionStore interface {
	Delete(ctx context.Context, sessionID string) error
	DeleteAllForSubject(ctx context.Context, subjectID string) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	DecodeToken  func(string) (string, error)
	SessionStore LogoutSessionStore
}

type LogoutResult struct {
	SessionID string
	Err       error
}

// RunLogout destroys the session behind token. A missing, invalid or already
// destroyed session is not an error.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) LogoutResult {
	if token == "" || deps.DecodeToken == nil || deps.SessionStore == nil {
		return LogoutResult{}
	}

	sessionID, err := deps.DecodeToken(token)
	if err != nil || sessionID == "" {
		return LogoutResult{}
	}

	err = deps.SessionStore.Delete(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		err = nil
	}
	return LogoutResult{
		SessionID: sessionID,
		Err:       err,
	}
}

func RunLogoutAll(ctx context.Context, subjectID string, deps LogoutDeps) error {
	if subjectID == "" || deps.SessionStore == nil {
		return nil
	}
	return deps.SessionStore.DeleteAllForSubject(ctx, subjectID)
}
