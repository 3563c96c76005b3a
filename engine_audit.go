package agencyAuth

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventSessionExpired       = "session_expired"
	auditEventGuardDenied          = "guard_denied"
	auditEventRehashSuccess        = "password_rehash_success"
	auditEventRehashFailure        = "password_rehash_failure"
	auditEventLogoutSession        = "logout_session"
	auditEventLogoutAll            = "logout_all"
	auditEventRegistrationSuccess  = "registration_success"
	auditEventRegistrationFailure  = "registration_failure"
	auditEventRegistrationConflict = "registration_duplicate"
)

// AuditErrorCode is the stable error label written into AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidInput          AuditErrorCode = "invalid_input"
	auditErrInvalidCredentials    AuditErrorCode = "invalid_credentials"
	auditErrRateLimited           AuditErrorCode = "rate_limited"
	auditErrAccountDisabled       AuditErrorCode = "account_disabled"
	auditErrParentDisabled        AuditErrorCode = "parent_disabled"
	auditErrPendingApproval       AuditErrorCode = "pending_approval"
	auditErrSessionCreationFailed AuditErrorCode = "session_creation_failed"
	auditErrUnauthenticated       AuditErrorCode = "unauthenticated"
	auditErrSessionExpired        AuditErrorCode = "session_expired"
	auditErrForbidden             AuditErrorCode = "forbidden"
	auditErrRehashFailed          AuditErrorCode = "rehash_failed"
	auditErrUserNotFound          AuditErrorCode = "user_not_found"
	auditErrDuplicate             AuditErrorCode = "duplicate"
	auditErrPasswordPolicy        AuditErrorCode = "password_policy"
	auditErrRegistrationInvalid   AuditErrorCode = "registration_invalid"
	auditErrUnavailable           AuditErrorCode = "backend_unavailable"
	auditErrInternal              AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subjectID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		SubjectID: subjectID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrParentDisabled):
		return auditErrParentDisabled
	case errors.Is(err, ErrPendingApproval):
		return auditErrPendingApproval
	case errors.Is(err, ErrSessionCreationFailed):
		return auditErrSessionCreationFailed
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrRehashFailed):
		return auditErrRehashFailed
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrPasswordMismatch):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrRegistrationInvalid):
		return auditErrRegistrationInvalid
	case errors.Is(err, ErrRegistrationUnavailable),
		errors.Is(err, ErrRegistrationDisabled):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
