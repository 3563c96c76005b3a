package agencyAuth

import (
	"context"
	"errors"
	"fmt"

	internalflows "github.com/MrEthical07/agencyAuth/internal/flows"
	"github.com/google/uuid"
)

// RegisterRequest is the self-service sign-up form. Phone is optional.
type RegisterRequest struct {
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
	Phone           string
	ParentEntityID  string
}

// Register creates a pending employee account and returns its subject ID.
// The account can log in only after an administrator activates and approves
// it. The credential store must implement CredentialCreator.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	return internalflows.RunRegister(ctx, internalflows.RegisterRequest{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		ParentEntityID:  req.ParentEntityID,
	}, e.registerFlowDeps())
}

// RegistrationMessage maps a Register error to the message shown on the
// sign-up form. A nil error yields the success message.
func (e *Engine) RegistrationMessage(err error) string {
	switch {
	case err == nil:
		return MsgRegistered
	case errors.Is(err, ErrRegistrationInvalid):
		return MsgRegistrationIncomplete
	case errors.Is(err, ErrPasswordMismatch):
		return MsgPasswordMismatch
	case errors.Is(err, ErrPasswordPolicy):
		return fmt.Sprintf(MsgPasswordTooShort, e.config.Registration.MinPasswordLength)
	case errors.Is(err, ErrAccountExists):
		return MsgAccountExists
	default:
		return MsgRegistrationFailed
	}
}

func (e *Engine) registerFlowDeps() internalflows.RegisterDeps {
	deps := internalflows.RegisterDeps{
		Enabled:           e.config.Registration.Enabled,
		MinPasswordLength: e.config.Registration.MinPasswordLength,
		NewSubjectID:      uuid.NewString,
		HashPassword:      e.hasher.Hash,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Warn:      e.warnf,
		Metrics: internalflows.RegisterMetrics{
			Success:   int(MetricRegistrationSuccess),
			Duplicate: int(MetricRegistrationDuplicate),
			Rejected:  int(MetricRegistrationRejected),
		},
		Events: internalflows.RegisterEvents{
			Success:   auditEventRegistrationSuccess,
			Failure:   auditEventRegistrationFailure,
			Duplicate: auditEventRegistrationConflict,
		},
		Errors: internalflows.RegisterErrors{
			EngineNotReady:   ErrEngineNotReady,
			Disabled:         ErrRegistrationDisabled,
			Invalid:          ErrRegistrationInvalid,
			PasswordMismatch: ErrPasswordMismatch,
			PasswordPolicy:   ErrPasswordPolicy,
			AccountExists:    ErrAccountExists,
			Unavailable:      ErrRegistrationUnavailable,
		},
	}

	if e.creator != nil {
		deps.Create = func(ctx context.Context, rec internalflows.RegisterRecord) error {
			return e.creator.Create(ctx, NewCredential{
				SubjectID:      rec.SubjectID,
				Email:          rec.Email,
				PasswordHash:   rec.PasswordHash,
				FirstName:      rec.FirstName,
				LastName:       rec.LastName,
				Phone:          rec.Phone,
				ParentEntityID: rec.ParentEntityID,
				Role:           RoleEmployee,
				Approved:       false,
				Active:         false,
			})
		}
	}

	return deps
}
