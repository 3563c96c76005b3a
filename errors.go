package agencyAuth

import "errors"

var (
	// ErrInvalidInput is returned when the identifier or secret is empty.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials covers unknown identifiers, wrong secrets and
	// credential store failures alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrParentDisabled     = errors.New("parent entity disabled")
	ErrPendingApproval    = errors.New("account pending approval")
	ErrLoginRateLimited   = errors.New("login rate limited")
	// ErrSessionCreationFailed is returned when the new session could not be
	// written. No session exists afterwards.
	ErrSessionCreationFailed = errors.New("session creation failed")

	ErrUnauthenticated = errors.New("unauthenticated")
	ErrSessionExpired  = errors.New("session expired")
	ErrForbidden       = errors.New("forbidden")

	// ErrRehashFailed is only logged and audited; it never reaches a caller of
	// Authenticate.
	ErrRehashFailed = errors.New("password rehash failed")

	// ErrUserNotFound is returned by CredentialStore implementations for an
	// unknown identifier or subject.
	ErrUserNotFound = errors.New("user not found")

	ErrAccountExists           = errors.New("account already exists")
	ErrRegistrationDisabled    = errors.New("registration disabled")
	ErrRegistrationInvalid     = errors.New("invalid registration request")
	ErrPasswordMismatch        = errors.New("password confirmation does not match")
	ErrPasswordPolicy          = errors.New("password policy violation")
	ErrRegistrationUnavailable = errors.New("registration backend unavailable")

	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// User-facing messages. Invalid input and invalid credentials share no detail
// about the account.
const (
	MsgInvalidInput       = "Please fill in all fields"
	MsgInvalidCredentials = "Invalid credentials"
	MsgAccountDisabled    = "Your account has been disabled. Contact the administrator."
	MsgParentDisabled     = "Your agency has been disabled. Contact the administrator."
	MsgPendingApproval    = "Your account is pending approval."
	MsgRateLimited        = "Too many login attempts. Try again later."
	MsgSessionFailure     = "Could not process the login"
	MsgWelcomeFormat      = "Welcome, %s!"

	MsgUnauthenticated   = "Not authenticated. Please log in."
	MsgSessionExpired    = "Your session has expired. Please log in again."
	MsgSessionExpiredAPI = "Session expired. Please log in again."
	MsgForbidden         = "You do not have permission to access this section"
	MsgLoggedOut         = "Session closed successfully"

	MsgRegistrationIncomplete = "Please fill in all required fields"
	MsgPasswordMismatch       = "Passwords do not match"
	MsgPasswordTooShort       = "Password must be at least %d characters"
	MsgAccountExists          = "This email is already registered"
	MsgRegistrationFailed     = "Could not create the account. Try again."
	MsgRegistered             = "Account created successfully! Wait for the administrator to activate it."
)

func messageForReason(reason Reason) string {
	switch reason {
	case ReasonInvalidInput:
		return MsgInvalidInput
	case ReasonInvalidCredentials:
		return MsgInvalidCredentials
	case ReasonAccountDisabled:
		return MsgAccountDisabled
	case ReasonParentDisabled:
		return MsgParentDisabled
	case ReasonPendingApproval:
		return MsgPendingApproval
	case ReasonRateLimited:
		return MsgRateLimited
	case ReasonSessionFailure:
		return MsgSessionFailure
	default:
		return ""
	}
}

func reasonForError(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrInvalidInput):
		return ReasonInvalidInput
	case errors.Is(err, ErrAccountDisabled):
		return ReasonAccountDisabled
	case errors.Is(err, ErrParentDisabled):
		return ReasonParentDisabled
	case errors.Is(err, ErrPendingApproval):
		return ReasonPendingApproval
	case errors.Is(err, ErrLoginRateLimited):
		return ReasonRateLimited
	case errors.Is(err, ErrSessionCreationFailed):
		return ReasonSessionFailure
	default:
		return ReasonInvalidCredentials
	}
}
