package agencyAuth

import (
	"context"

	internalflows "github.com/MrEthical07/agencyAuth/internal/flows"
)

// Logout destroys the session referenced by token. Missing, invalid and
// already-destroyed sessions are not errors; only a store failure is.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	res := internalflows.RunLogout(ctx, token, e.logoutFlowDeps())
	if res.Err != nil {
		e.log.WithError(res.Err).Warn("agencyAuth: logout failed")
		return res.Err
	}
	if res.SessionID != "" {
		e.metricInc(MetricLogout)
		e.emitAudit(ctx, auditEventLogoutSession, true, "", res.SessionID, nil, nil)
	}
	return nil
}

// LogoutAll destroys every session of subjectID.
func (e *Engine) LogoutAll(ctx context.Context, subjectID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := internalflows.RunLogoutAll(ctx, subjectID, e.logoutFlowDeps()); err != nil {
		e.log.WithError(err).WithField("subject_id", subjectID).Warn("agencyAuth: logout all failed")
		return err
	}
	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, subjectID, "", nil, nil)
	return nil
}

func (e *Engine) logoutFlowDeps() internalflows.LogoutDeps {
	return internalflows.LogoutDeps{
		DecodeToken:  e.codec.Decode,
		SessionStore: e.sessions,
	}
}
