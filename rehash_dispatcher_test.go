package agencyAuth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type doneRecorder struct {
	mu   sync.Mutex
	errs map[string]error
	n    int
}

func (r *doneRecorder) record(_ context.Context, subjectID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errs == nil {
		r.errs = map[string]error{}
	}
	r.errs[subjectID] = err
	r.n++
}

func (r *doneRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

func TestRehashDispatcherUpdatesStore(t *testing.T) {
	store := newFakeStore()
	store.put(CredentialRecord{SubjectID: "u1", PasswordHash: "old", Email: "u1@x.com"})
	rec := &doneRecorder{}

	d := newRehashDispatcher(RehashConfig{Workers: 2, QueueSize: 4, Timeout: time.Second},
		func(p string) (string, error) { return "new:" + p, nil },
		store, quietLogger(), rec.record)

	if !d.Enqueue("u1", "pw") {
		t.Fatal("Enqueue refused")
	}
	d.Close()

	if got := store.hash("u1"); got != "new:pw" {
		t.Fatalf("expected upgraded hash, got %q", got)
	}
	if rec.count() != 1 || rec.errs["u1"] != nil {
		t.Fatalf("unexpected outcomes %+v", rec.errs)
	}
}

func TestRehashDispatcherHashFailure(t *testing.T) {
	store := newFakeStore()
	store.put(CredentialRecord{SubjectID: "u1", PasswordHash: "old"})
	rec := &doneRecorder{}

	d := newRehashDispatcher(RehashConfig{Workers: 1, QueueSize: 1, Timeout: time.Second},
		func(string) (string, error) { return "", errors.New("boom") },
		store, quietLogger(), rec.record)
	d.Enqueue("u1", "pw")
	d.Close()

	if !errors.Is(rec.errs["u1"], ErrRehashFailed) {
		t.Fatalf("expected ErrRehashFailed, got %v", rec.errs["u1"])
	}
	if store.updateCount("u1") != 0 || store.hash("u1") != "old" {
		t.Fatal("store must not be touched when hashing fails")
	}
}

func TestRehashDispatcherFullQueueReportsFailure(t *testing.T) {
	store := newFakeStore()
	rec := &doneRecorder{}
	gate := make(chan struct{})

	d := newRehashDispatcher(RehashConfig{Workers: 1, QueueSize: 1, Timeout: time.Second},
		func(p string) (string, error) {
			<-gate
			return p, nil
		},
		store, quietLogger(), rec.record)

	accepted := 0
	for i := 0; i < 5; i++ {
		if d.Enqueue("u1", "pw") {
			accepted++
		}
	}
	close(gate)
	d.Close()

	if accepted == 5 || d.Dropped() == 0 {
		t.Fatalf("expected drops, accepted=%d dropped=%d", accepted, d.Dropped())
	}
	if rec.count() != 5 {
		t.Fatalf("every job must report an outcome, got %d", rec.count())
	}
}

func TestRehashDispatcherEnqueueAfterClose(t *testing.T) {
	rec := &doneRecorder{}
	d := newRehashDispatcher(RehashConfig{Workers: 1, QueueSize: 1, Timeout: time.Second},
		func(p string) (string, error) { return p, nil },
		newFakeStore(), quietLogger(), rec.record)
	d.Close()

	if d.Enqueue("u1", "pw") {
		t.Fatal("closed dispatcher must refuse jobs")
	}
	if !errors.Is(rec.errs["u1"], ErrRehashFailed) {
		t.Fatalf("expected ErrRehashFailed, got %v", rec.errs["u1"])
	}
}
