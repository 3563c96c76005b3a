package agencyAuth

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/agencyAuth/session"
)

/*
====================================
ROLES
====================================
*/

// Role is the enumerated account role. The zero value is not a valid role.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleAccountant
	RoleEmployee
)

// String returns the canonical stored name of r.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleAccountant:
		return "accountant"
	case RoleEmployee:
		return "employee"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	return r >= RoleAdmin && r <= RoleEmployee
}

// ParseRole maps a stored role name to a Role. The legacy names "contador"
// and "empleado" are accepted. Unknown names return RoleUnknown, false.
func ParseRole(name string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "admin":
		return RoleAdmin, true
	case "accountant", "contador":
		return RoleAccountant, true
	case "employee", "empleado":
		return RoleEmployee, true
	default:
		return RoleUnknown, false
	}
}

// RoleSet is a bitmask of roles.
type RoleSet uint8

// RolesOf builds a RoleSet from roles. Invalid roles are ignored.
func RolesOf(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		if r.Valid() {
			s |= 1 << r
		}
	}
	return s
}

// Contains reports whether r is a member of s.
func (s RoleSet) Contains(r Role) bool {
	return r.Valid() && s&(1<<r) != 0
}

/*
====================================
GUARDS
====================================
*/

// GuardKind selects the role requirement of a guard.
type GuardKind uint8

const (
	// GuardPlain requires an authenticated session, any role.
	GuardPlain GuardKind = iota
	// GuardAdmin requires role admin.
	GuardAdmin
	// GuardFinancial requires role admin or accountant.
	GuardFinancial
)

func (k GuardKind) String() string {
	switch k {
	case GuardPlain:
		return "plain"
	case GuardAdmin:
		return "admin"
	case GuardFinancial:
		return "financial"
	default:
		return "unknown"
	}
}

// Roles returns the roles admitted by k. Unknown kinds admit nobody.
func (k GuardKind) Roles() RoleSet {
	switch k {
	case GuardPlain:
		return RolesOf(RoleAdmin, RoleAccountant, RoleEmployee)
	case GuardAdmin:
		return RolesOf(RoleAdmin)
	case GuardFinancial:
		return RolesOf(RoleAdmin, RoleAccountant)
	default:
		return 0
	}
}

// Disposition is the outcome category of a guard decision.
type Disposition uint8

const (
	DispositionAllow Disposition = iota
	DispositionUnauthenticated
	DispositionExpired
	DispositionForbidden
)

func (d Disposition) String() string {
	switch d {
	case DispositionAllow:
		return "allow"
	case DispositionUnauthenticated:
		return "unauthenticated"
	case DispositionExpired:
		return "expired"
	case DispositionForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Identity is the request-scoped view of an allowed session.
type Identity struct {
	SessionID        string
	SubjectID        string
	Role             Role
	ParentEntityID   string
	ParentEntityName string
	FirstName        string
	LastName         string
	Email            string
	Phone            string
}

// Decision is the result of Engine.Guard. Identity is set only when
// Disposition is DispositionAllow; Message is set only on denial.
type Decision struct {
	Disposition Disposition
	Identity    *Identity
	Message     string
	Err         error
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Disposition == DispositionAllow && d.Identity != nil
}

/*
====================================
AUTHENTICATION RESULTS
====================================
*/

// Outcome is the terminal state of an authentication attempt.
type Outcome uint8

const (
	OutcomeRejected Outcome = iota
	OutcomeAuthenticated
)

func (o Outcome) String() string {
	if o == OutcomeAuthenticated {
		return "authenticated"
	}
	return "rejected"
}

// Reason classifies a rejected authentication. It is internal; callers show
// AuthResult.Message.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonInvalidInput       Reason = "invalid_input"
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonAccountDisabled    Reason = "account_disabled"
	ReasonParentDisabled     Reason = "parent_disabled"
	ReasonPendingApproval    Reason = "pending_approval"
	ReasonRateLimited        Reason = "rate_limited"
	ReasonSessionFailure     Reason = "session_failure"
)

// AuthResult is returned by Engine.Authenticate for every attempt.
//
// Token is the signed cookie value carrying Session.ID; it is empty unless
// Outcome is OutcomeAuthenticated.
type AuthResult struct {
	Outcome        Outcome
	Reason         Reason
	Message        string
	RedirectTarget string
	Session        *session.Session
	Token          string
}

// Authenticated reports whether the attempt established a session.
func (r *AuthResult) Authenticated() bool {
	return r != nil && r.Outcome == OutcomeAuthenticated && r.Session != nil
}

/*
====================================
CONSUMED STORES
====================================
*/

// CredentialRecord is the identity-bound view the login flow reads in one
// lookup. ParentEntityActive comes from the same read when the store can
// join it; a configured ParentEntityStore takes precedence.
type CredentialRecord struct {
	SubjectID          string
	PasswordHash       string
	Active             bool
	Approved           bool
	Role               Role
	ParentEntityID     string
	ParentEntityName   string
	ParentEntityActive bool
	FirstName          string
	LastName           string
	Email              string
	Phone              string
}

// CredentialStore is the credential lookup the engine consumes.
//
// FindByIdentifier must return ErrUserNotFound (or an error wrapping it)
// when no record matches. Any other error is treated as a store failure.
type CredentialStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (CredentialRecord, error)
	UpdatePasswordHash(ctx context.Context, subjectID, newHash string) error
}

// NewCredential is the record written by registration.
type NewCredential struct {
	SubjectID      string
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	Phone          string
	ParentEntityID string
	Role           Role
	Approved       bool
	Active         bool
}

// CredentialCreator is implemented by credential stores that support
// registration. Create returns ErrAccountExists for a taken email.
type CredentialCreator interface {
	Create(ctx context.Context, rec NewCredential) error
}

// ParentEntityStore reports the current state of a parent entity (agency).
// IsActive returns false, nil for an unknown entity.
type ParentEntityStore interface {
	IsActive(ctx context.Context, parentEntityID string) (bool, error)
}

// ParentEntity is a selectable parent entity for the registration form.
type ParentEntity struct {
	ID   string
	Name string
}

// ParentEntityLister is implemented by parent entity stores that can list
// active entities.
type ParentEntityLister interface {
	ActiveParentEntities(ctx context.Context) ([]ParentEntity, error)
}

// SessionStore is the session persistence the engine consumes. *session.Store
// is the Redis implementation.
type SessionStore interface {
	Replace(ctx context.Context, priorID string, sess *session.Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteAllForSubject(ctx context.Context, subjectID string) error
}
