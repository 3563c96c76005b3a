package flows

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/agencyAuth/session"
)

// LoginRecord is a flow-local credential model. Role is the canonical role
// name; Employee marks records subject to the parent and approval gates.
type LoginRecord struct {
	SubjectID          string
	PasswordHash       string
	Active             bool
	Approved           bool
	Role               string
	Employee           bool
	ParentEntityID     string
	ParentEntityName   string
	ParentEntityActive bool
	FirstName          string
	LastName           string
	Email              string
	Phone              string
}

// LoginResult is the flow-local success payload.
type LoginResult struct {
	Record         LoginRecord
	Session        *session.Session
	Token          string
	RedirectTarget string
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess          int
	LoginFailure          int
	LoginRateLimited      int
	AccountDisabled       int
	ParentDisabled        int
	PendingApproval       int
	SessionCreated        int
	SessionCreationFailed int
	RehashQueued          int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady        error
	InvalidInput          error
	InvalidCredentials    error
	AccountDisabled       error
	ParentDisabled        error
	PendingApproval       error
	LoginRateLimited      error
	SessionCreationFailed error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	PermanentSessions bool
	SessionTTL        time.Duration
	UpgradeOnLogin    bool

	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string
	PriorSessionID      func(context.Context) string

	CheckLoginRate     func(context.Context, string, string) error
	RecordLoginFailure func(context.Context, string, string)
	ResetLoginRate     func(context.Context, string, string)

	FindByIdentifier   func(context.Context, string) (LoginRecord, error)
	ParentEntityActive func(context.Context, string) (bool, error)

	VerifyPassword func(string, string) bool
	NeedsRehash    func(string) bool
	EnqueueRehash  func(subjectID, plaintext string) bool

	NewSessionID   func() (string, error)
	EncodeToken    func(string) (string, error)
	ReplaceSession func(context.Context, string, *session.Session, time.Duration) error
	LandingFor     func(role string) string

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin executes one login attempt end to end. Every gate is evaluated in
// order and the first failing gate decides the returned error. A session is
// written only after every gate passed.
func RunLogin(ctx context.Context, identifier, secret string, deps LoginDeps) (*LoginResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.PriorSessionID == nil {
		deps.PriorSessionID = func(context.Context) string { return "" }
	}
	if deps.RecordLoginFailure == nil {
		deps.RecordLoginFailure = func(context.Context, string, string) {}
	}
	if deps.ResetLoginRate == nil {
		deps.ResetLoginRate = func(context.Context, string, string) {}
	}
	if deps.FindByIdentifier == nil ||
		deps.VerifyPassword == nil ||
		deps.NewSessionID == nil ||
		deps.EncodeToken == nil ||
		deps.ReplaceSession == nil ||
		deps.LandingFor == nil {
		return nil, deps.Errors.EngineNotReady
	}

	identifier = strings.TrimSpace(identifier)
	ip := deps.ClientIPFromContext(ctx)

	fail := func(subjectID string, metric int, err error, reason string) (*LoginResult, error) {
		deps.MetricInc(metric)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, subjectID, "", err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     reason,
			}
		})
		return nil, err
	}

	if identifier == "" || secret == "" {
		return fail("", deps.Metrics.LoginFailure, deps.Errors.InvalidInput, "missing_field")
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, identifier, ip); err != nil {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", "", deps.Errors.LoginRateLimited, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			return nil, deps.Errors.LoginRateLimited
		}
	}

	rec, err := deps.FindByIdentifier(ctx, identifier)
	if err != nil {
		deps.RecordLoginFailure(ctx, identifier, ip)
		return fail("", deps.Metrics.LoginFailure, deps.Errors.InvalidCredentials, "lookup_failed")
	}

	if !deps.VerifyPassword(secret, rec.PasswordHash) {
		deps.RecordLoginFailure(ctx, identifier, ip)
		return fail(rec.SubjectID, deps.Metrics.LoginFailure, deps.Errors.InvalidCredentials, "password_mismatch")
	}

	if deps.UpgradeOnLogin && deps.NeedsRehash != nil && deps.EnqueueRehash != nil && deps.NeedsRehash(rec.PasswordHash) {
		if deps.EnqueueRehash(rec.SubjectID, secret) {
			deps.MetricInc(deps.Metrics.RehashQueued)
		}
	}
	secret = ""

	if !rec.Active {
		return fail(rec.SubjectID, deps.Metrics.AccountDisabled, deps.Errors.AccountDisabled, "account_disabled")
	}

	if rec.Employee && rec.ParentEntityID != "" {
		active := rec.ParentEntityActive
		if deps.ParentEntityActive != nil {
			active, err = deps.ParentEntityActive(ctx, rec.ParentEntityID)
			if err != nil {
				deps.Warn("agencyAuth: parent entity lookup failed: %v", err)
				return fail(rec.SubjectID, deps.Metrics.LoginFailure, deps.Errors.InvalidCredentials, "parent_lookup_failed")
			}
		}
		if !active {
			return fail(rec.SubjectID, deps.Metrics.ParentDisabled, deps.Errors.ParentDisabled, "parent_disabled")
		}
	}

	if rec.Employee && !rec.Approved {
		return fail(rec.SubjectID, deps.Metrics.PendingApproval, deps.Errors.PendingApproval, "pending_approval")
	}

	deps.ResetLoginRate(ctx, identifier, ip)

	sessionID, err := deps.NewSessionID()
	if err != nil {
		deps.Warn("agencyAuth: session id generation failed: %v", err)
		return fail(rec.SubjectID, deps.Metrics.SessionCreationFailed, deps.Errors.SessionCreationFailed, "session_id")
	}
	token, err := deps.EncodeToken(sessionID)
	if err != nil {
		deps.Warn("agencyAuth: session token encoding failed: %v", err)
		return fail(rec.SubjectID, deps.Metrics.SessionCreationFailed, deps.Errors.SessionCreationFailed, "session_token")
	}

	sess := &session.Session{
		ID:               sessionID,
		SubjectID:        rec.SubjectID,
		Role:             rec.Role,
		ParentEntityID:   rec.ParentEntityID,
		ParentEntityName: rec.ParentEntityName,
		FirstName:        rec.FirstName,
		LastName:         rec.LastName,
		Email:            rec.Email,
		Phone:            rec.Phone,
		CreatedAt:        deps.Now().Unix(),
		Permanent:        deps.PermanentSessions,
	}

	if err := deps.ReplaceSession(ctx, deps.PriorSessionID(ctx), sess, deps.SessionTTL); err != nil {
		deps.Warn("agencyAuth: session write failed: %v", err)
		return fail(rec.SubjectID, deps.Metrics.SessionCreationFailed, deps.Errors.SessionCreationFailed, "session_write")
	}

	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, rec.SubjectID, sessionID, nil, func() map[string]string {
		return map[string]string{
			"role": rec.Role,
		}
	})

	return &LoginResult{
		Record:         rec,
		Session:        sess,
		Token:          token,
		RedirectTarget: deps.LandingFor(rec.Role),
	}, nil
}
