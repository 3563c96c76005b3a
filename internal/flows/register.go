package flows

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// RegisterRequest is the self-service sign-up payload.
type RegisterRequest struct {
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
	Phone           string
	ParentEntityID  string
}

// RegisterRecord is what the flow hands to the credential store.
type RegisterRecord struct {
	SubjectID      string
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	Phone          string
	ParentEntityID string
}

// RegisterMetrics carries metric IDs needed by the register flow.
type RegisterMetrics struct {
	Success   int
	Duplicate int
	Rejected  int
}

// RegisterEvents carries audit event names used by the register flow.
type RegisterEvents struct {
	Success   string
	Failure   string
	Duplicate string
}

// RegisterErrors carries host-level sentinel errors used by the register flow.
// AccountExists is also the error the store is expected to wrap for a
// duplicate email.
type RegisterErrors struct {
	EngineNotReady   error
	Disabled         error
	Invalid          error
	PasswordMismatch error
	PasswordPolicy   error
	AccountExists    error
	Unavailable      error
}

// RegisterDeps captures register dependencies.
type RegisterDeps struct {
	Enabled           bool
	MinPasswordLength int

	NewSubjectID func() string
	HashPassword func(string) (string, error)
	Create       func(context.Context, RegisterRecord) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)
	Warn      func(string, ...any)

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister validates req, hashes the password and stores a new pending
// account. It returns the new subject ID.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) (string, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if !deps.Enabled {
		return "", deps.Errors.Disabled
	}
	if deps.NewSubjectID == nil || deps.HashPassword == nil || deps.Create == nil {
		return "", deps.Errors.EngineNotReady
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.ParentEntityID = strings.TrimSpace(req.ParentEntityID)

	reject := func(err error, reason string) (string, error) {
		deps.MetricInc(deps.Metrics.Rejected)
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", "", err, func() map[string]string {
			return map[string]string{
				"email":  req.Email,
				"reason": reason,
			}
		})
		return "", err
	}

	if req.Email == "" || req.Password == "" || req.PasswordConfirm == "" ||
		req.FirstName == "" || req.LastName == "" || req.ParentEntityID == "" {
		return reject(deps.Errors.Invalid, "missing_field")
	}
	if !strings.Contains(req.Email, "@") {
		return reject(deps.Errors.Invalid, "invalid_email")
	}
	if req.Password != req.PasswordConfirm {
		return reject(deps.Errors.PasswordMismatch, "password_mismatch")
	}
	if utf8.RuneCountInString(req.Password) < deps.MinPasswordLength {
		return reject(deps.Errors.PasswordPolicy, "password_too_short")
	}

	hash, err := deps.HashPassword(req.Password)
	if err != nil {
		deps.Warn("agencyAuth: registration hash failed: %v", err)
		return reject(deps.Errors.PasswordPolicy, "password_hash")
	}

	rec := RegisterRecord{
		SubjectID:      deps.NewSubjectID(),
		Email:          req.Email,
		PasswordHash:   hash,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		ParentEntityID: req.ParentEntityID,
	}

	if err := deps.Create(ctx, rec); err != nil {
		if errors.Is(err, deps.Errors.AccountExists) {
			deps.MetricInc(deps.Metrics.Duplicate)
			deps.EmitAudit(ctx, deps.Events.Duplicate, false, "", "", deps.Errors.AccountExists, func() map[string]string {
				return map[string]string{
					"email": req.Email,
				}
			})
			return "", deps.Errors.AccountExists
		}
		deps.Warn("agencyAuth: registration store failed: %v", err)
		return reject(deps.Errors.Unavailable, "store_failed")
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, rec.SubjectID, "", nil, func() map[string]string {
		return map[string]string{
			"parent_entity_id": rec.ParentEntityID,
		}
	})
	return rec.SubjectID, nil
}
