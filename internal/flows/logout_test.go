package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/agencyAuth/session"
)

type fakeLogoutStore struct {
	deleted    []string
	deletedAll []string
	err        error
}

func (f *fakeLogoutStore) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeLogoutStore) DeleteAllForSubject(_ context.Context, id string) error {
	f.deletedAll = append(f.deletedAll, id)
	return f.err
}

func logoutDeps(store *fakeLogoutStore) LogoutDeps {
	return LogoutDeps{
		DecodeToken: func(tok string) (string, error) {
			if tok == "bad" {
				return "", errors.New("bad")
			}
			return tok, nil
		},
		SessionStore: store,
	}
}

func TestRunLogout(t *testing.T) {
	store := &fakeLogoutStore{}

	res := RunLogout(context.Background(), "sid1", logoutDeps(store))
	if res.Err != nil || res.SessionID != "sid1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected one delete, got %v", store.deleted)
	}

	for _, tok := range []string{"", "bad"} {
		if res := RunLogout(context.Background(), tok, logoutDeps(store)); res.Err != nil || res.SessionID != "" {
			t.Fatalf("expected silent no-op for %q, got %+v", tok, res)
		}
	}
	if len(store.deleted) != 1 {
		t.Fatal("invalid tokens must not reach the store")
	}
}

func TestRunLogoutNotFoundIsNil(t *testing.T) {
	store := &fakeLogoutStore{err: session.ErrNotFound}
	if res := RunLogout(context.Background(), "sid1", logoutDeps(store)); res.Err != nil {
		t.Fatalf("expected nil for missing session, got %v", res.Err)
	}
}

func TestRunLogoutAll(t *testing.T) {
	store := &fakeLogoutStore{}
	if err := RunLogoutAll(context.Background(), "u1", logoutDeps(store)); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if err := RunLogoutAll(context.Background(), "", logoutDeps(store)); err != nil {
		t.Fatalf("empty subject: %v", err)
	}
	if len(store.deletedAll) != 1 || store.deletedAll[0] != "u1" {
		t.Fatalf("unexpected deletes %v", store.deletedAll)
	}
}
