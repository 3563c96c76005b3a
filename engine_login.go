package agencyAuth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/agencyAuth/internal"
	internalflows "github.com/MrEthical07/agencyAuth/internal/flows"
	"github.com/MrEthical07/agencyAuth/internal/rate"
)

// Authenticate runs one login attempt.
//
// The returned result is never nil. When the attempt is rejected, err is the
// matching sentinel (ErrInvalidCredentials, ErrAccountDisabled, ...) and the
// result carries the user-facing message. On success, result.Token is the
// cookie value to set and any session referenced by WithSessionToken has been
// destroyed.
func (e *Engine) Authenticate(ctx context.Context, identifier, secret string) (*AuthResult, error) {
	if e == nil {
		return rejectedResult(ErrEngineNotReady), ErrEngineNotReady
	}

	res, err := internalflows.RunLogin(ctx, identifier, secret, e.loginFlowDeps())
	if err != nil {
		return rejectedResult(err), err
	}

	name := res.Record.FirstName
	if name == "" {
		name = res.Record.Email
	}

	return &AuthResult{
		Outcome:        OutcomeAuthenticated,
		Message:        fmt.Sprintf(MsgWelcomeFormat, name),
		RedirectTarget: res.RedirectTarget,
		Session:        res.Session,
		Token:          res.Token,
	}, nil
}

func rejectedResult(err error) *AuthResult {
	reason := reasonForError(err)
	return &AuthResult{
		Outcome: OutcomeRejected,
		Reason:  reason,
		Message: messageForReason(reason),
	}
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	deps := internalflows.LoginDeps{
		PermanentSessions:   e.config.Session.Permanent,
		SessionTTL:          e.config.sessionTTL(),
		UpgradeOnLogin:      e.config.Password.UpgradeOnLogin,
		Now:                 e.now,
		ClientIPFromContext: clientIPFromContext,
		PriorSessionID: func(ctx context.Context) string {
			return e.sessionIDFromToken(sessionTokenFromContext(ctx))
		},
		FindByIdentifier: e.findLoginRecord,
		VerifyPassword:   e.hasher.Verify,
		NeedsRehash:      e.hasher.NeedsRehash,
		NewSessionID:     internal.NewSessionIDString,
		EncodeToken:      e.codec.Encode,
		ReplaceSession:   e.sessions.Replace,
		LandingFor: func(role string) string {
			r, _ := ParseRole(role)
			return e.LandingFor(r)
		},
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Warn:      e.warnf,
		Metrics: internalflows.LoginMetrics{
			LoginSuccess:          int(MetricLoginSuccess),
			LoginFailure:          int(MetricLoginFailure),
			LoginRateLimited:      int(MetricLoginRateLimited),
			AccountDisabled:       int(MetricLoginAccountDisabled),
			ParentDisabled:        int(MetricLoginParentDisabled),
			PendingApproval:       int(MetricLoginPendingApproval),
			SessionCreated:        int(MetricSessionCreated),
			SessionCreationFailed: int(MetricSessionCreationFailed),
			RehashQueued:          int(MetricRehashQueued),
		},
		Events: internalflows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
		},
		Errors: internalflows.LoginErrors{
			EngineNotReady:        ErrEngineNotReady,
			InvalidInput:          ErrInvalidInput,
			InvalidCredentials:    ErrInvalidCredentials,
			AccountDisabled:       ErrAccountDisabled,
			ParentDisabled:        ErrParentDisabled,
			PendingApproval:       ErrPendingApproval,
			LoginRateLimited:      ErrLoginRateLimited,
			SessionCreationFailed: ErrSessionCreationFailed,
		},
	}

	if e.rehash != nil {
		deps.EnqueueRehash = e.rehash.Enqueue
	}

	if e.parents != nil {
		deps.ParentEntityActive = e.parents.IsActive
	}

	if e.limiter != nil {
		deps.CheckLoginRate = func(ctx context.Context, identifier, ip string) error {
			err := e.limiter.CheckLogin(ctx, identifier, ip)
			if err != nil && !errors.Is(err, rate.ErrRateLimited) {
				e.log.WithError(err).Warn("agencyAuth: login throttle unavailable, rejecting")
			}
			return err
		}
		deps.RecordLoginFailure = func(ctx context.Context, identifier, ip string) {
			err := e.limiter.IncrementLogin(ctx, identifier, ip)
			if err != nil && !errors.Is(err, rate.ErrRateLimited) {
				e.log.WithError(err).Warn("agencyAuth: login failure not recorded")
			}
		}
		deps.ResetLoginRate = func(ctx context.Context, identifier, ip string) {
			if err := e.limiter.ResetLogin(ctx, identifier, ip); err != nil {
				e.log.WithError(err).Warn("agencyAuth: login throttle reset failed")
			}
		}
	}

	return deps
}

// findLoginRecord adapts the credential store. Records with an unknown role
// are refused as store failures.
func (e *Engine) findLoginRecord(ctx context.Context, identifier string) (internalflows.LoginRecord, error) {
	rec, err := e.credentials.FindByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			e.log.WithError(err).Warn("agencyAuth: credential lookup failed")
		}
		return internalflows.LoginRecord{}, err
	}
	if !rec.Role.Valid() {
		e.log.WithField("subject_id", rec.SubjectID).Warn("agencyAuth: credential record has no valid role")
		return internalflows.LoginRecord{}, ErrInvalidCredentials
	}
	return toFlowLoginRecord(rec), nil
}

func toFlowLoginRecord(rec CredentialRecord) internalflows.LoginRecord {
	return internalflows.LoginRecord{
		SubjectID:          rec.SubjectID,
		PasswordHash:       rec.PasswordHash,
		Active:             rec.Active,
		Approved:           rec.Approved,
		Role:               rec.Role.String(),
		Employee:           rec.Role == RoleEmployee,
		ParentEntityID:     rec.ParentEntityID,
		ParentEntityName:   rec.ParentEntityName,
		ParentEntityActive: rec.ParentEntityActive,
		FirstName:          rec.FirstName,
		LastName:           rec.LastName,
		Email:              rec.Email,
		Phone:              rec.Phone,
	}
}
