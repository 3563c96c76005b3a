package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/agencyAuth/session"
)

var (
	errUnauth    = errors.New("unauthenticated")
	errExpired   = errors.New("expired")
	errForbidden = errors.New("forbidden")
)

func guardDeps(now time.Time, sessions map[string]*session.Session, deleted *[]string) GuardDeps {
	return GuardDeps{
		Lifetime: time.Hour,
		Now:      func() time.Time { return now },
		DecodeToken: func(tok string) (string, error) {
			if len(tok) < 4 || tok[:4] != "tok." {
				return "", errors.New("bad token")
			}
			return tok[4:], nil
		},
		GetSession: func(_ context.Context, id string) (*session.Session, error) {
			s, ok := sessions[id]
			if !ok {
				return nil, session.ErrNotFound
			}
			return s, nil
		},
		DeleteSession: func(_ context.Context, id string) error {
			*deleted = append(*deleted, id)
			return nil
		},
		Errors: GuardErrors{
			Unauthenticated: errUnauth,
			SessionExpired:  errExpired,
			Forbidden:       errForbidden,
		},
	}
}

func TestRunGuard(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	sessions := map[string]*session.Session{
		"fresh": {ID: "fresh", SubjectID: "u1", Role: "employee", CreatedAt: now.Add(-30 * time.Minute).Unix(), Permanent: true},
		"stale": {ID: "stale", SubjectID: "u2", Role: "admin", CreatedAt: now.Add(-61 * time.Minute).Unix(), Permanent: true},
		"edge":  {ID: "edge", SubjectID: "u3", Role: "admin", CreatedAt: now.Add(-time.Hour).Unix(), Permanent: true},
		"plain": {ID: "plain", SubjectID: "u4", Role: "admin", CreatedAt: now.Add(-48 * time.Hour).Unix()},
	}
	adminOnly := func(role string) bool { return role == "admin" }

	cases := []struct {
		name    string
		token   string
		allowed func(string) bool
		want    error
	}{
		{"empty token", "", nil, errUnauth},
		{"bad signature", "forged", nil, errUnauth},
		{"unknown session", "tok.gone", nil, errUnauth},
		{"fresh any role", "tok.fresh", nil, nil},
		{"fresh wrong role", "tok.fresh", adminOnly, errForbidden},
		{"exactly at lifetime", "tok.edge", adminOnly, nil},
		{"aged out", "tok.stale", adminOnly, errExpired},
		{"non-permanent never ages", "tok.plain", adminOnly, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var deleted []string
			sess, err := RunGuard(context.Background(), tc.token, tc.allowed, guardDeps(now, sessions, &deleted))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.want == nil && sess == nil {
				t.Fatal("expected session on allow")
			}
			if tc.want == errExpired && (len(deleted) != 1 || deleted[0] != "stale") {
				t.Fatalf("expected expired session deleted, got %v", deleted)
			}
			if tc.want != errExpired && len(deleted) != 0 {
				t.Fatalf("unexpected deletes %v", deleted)
			}
		})
	}
}

func TestRunGuardStoreErrorIsUnauthenticated(t *testing.T) {
	var deleted []string
	deps := guardDeps(time.Now(), nil, &deleted)
	warned := false
	deps.Warn = func(string, ...any) { warned = true }
	deps.GetSession = func(context.Context, string) (*session.Session, error) {
		return nil, session.ErrRedisUnavailable
	}

	if _, err := RunGuard(context.Background(), "tok.x", nil, deps); !errors.Is(err, errUnauth) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if !warned {
		t.Fatal("store failure should be logged")
	}
}
