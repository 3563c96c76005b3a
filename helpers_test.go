package agencyAuth

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/agencyAuth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const testPassword = "correct-password-123"

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Cookie.SecretKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Rehash.Workers = 1
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestHasher(t testing.TB) *password.Hasher {
	t.Helper()

	cfg := testConfig()
	h, err := password.NewHasher(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeParent struct {
	name   string
	active bool
}

// fakeStore implements every store interface the engine consumes.
type fakeStore struct {
	mu       sync.Mutex
	records  map[string]CredentialRecord
	parents  map[string]fakeParent
	updates  map[string]int
	findErr  error
	updErr   error
	createFn func(NewCredential) error
	created  []NewCredential
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: map[string]CredentialRecord{},
		parents: map[string]fakeParent{},
		updates: map[string]int{},
	}
}

func (s *fakeStore) put(rec CredentialRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.SubjectID] = rec
}

func (s *fakeStore) putParent(id, name string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parents[id] = fakeParent{name: name, active: active}
}

func (s *fakeStore) hash(subjectID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[subjectID].PasswordHash
}

func (s *fakeStore) updateCount(subjectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates[subjectID]
}

func (s *fakeStore) FindByIdentifier(_ context.Context, identifier string) (CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return CredentialRecord{}, s.findErr
	}
	for _, rec := range s.records {
		if strings.EqualFold(rec.Email, identifier) {
			if p, ok := s.parents[rec.ParentEntityID]; ok {
				rec.ParentEntityName = p.name
				rec.ParentEntityActive = p.active
			}
			return rec, nil
		}
	}
	return CredentialRecord{}, ErrUserNotFound
}

func (s *fakeStore) UpdatePasswordHash(_ context.Context, subjectID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[subjectID]++
	if s.updErr != nil {
		return s.updErr
	}
	rec, ok := s.records[subjectID]
	if !ok {
		return ErrUserNotFound
	}
	rec.PasswordHash = newHash
	s.records[subjectID] = rec
	return nil
}

func (s *fakeStore) Create(_ context.Context, nc NewCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createFn != nil {
		if err := s.createFn(nc); err != nil {
			return err
		}
	}
	for _, rec := range s.records {
		if strings.EqualFold(rec.Email, nc.Email) {
			return ErrAccountExists
		}
	}
	s.created = append(s.created, nc)
	s.records[nc.SubjectID] = CredentialRecord{
		SubjectID:      nc.SubjectID,
		PasswordHash:   nc.PasswordHash,
		Active:         nc.Active,
		Approved:       nc.Approved,
		Role:           nc.Role,
		ParentEntityID: nc.ParentEntityID,
		FirstName:      nc.FirstName,
		LastName:       nc.LastName,
		Email:          nc.Email,
		Phone:          nc.Phone,
	}
	return nil
}

func (s *fakeStore) IsActive(_ context.Context, parentEntityID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parents[parentEntityID].active, nil
}

func (s *fakeStore) ActiveParentEntities(context.Context) ([]ParentEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []ParentEntity{}
	for id, p := range s.parents {
		if p.active {
			out = append(out, ParentEntity{ID: id, Name: p.name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// seedAccounts stores one account per role, all passing every gate.
func seedAccounts(t testing.TB, store *fakeStore) {
	t.Helper()

	hash, err := newTestHasher(t).Hash(testPassword)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	store.putParent("ag-1", "Norte Travel", true)
	store.put(CredentialRecord{
		SubjectID: "admin-1", PasswordHash: hash, Active: true,
		Role: RoleAdmin, FirstName: "Ana", Email: "admin@x.com",
	})
	store.put(CredentialRecord{
		SubjectID: "acct-1", PasswordHash: hash, Active: true,
		Role: RoleAccountant, FirstName: "Carlos", Email: "accountant@x.com",
	})
	store.put(CredentialRecord{
		SubjectID: "emp-1", PasswordHash: hash, Active: true, Approved: true,
		Role: RoleEmployee, ParentEntityID: "ag-1",
		FirstName: "Eva", LastName: "Ruiz", Email: "employee@x.com",
	})
}

type testEngine struct {
	*Engine
	store *fakeStore
	mr    *miniredis.Miniredis
	rdb   *redis.Client
	clock *fakeClock
}

func buildTestEngine(t testing.TB, cfg Config, sink AuditSink) *testEngine {
	t.Helper()

	mr, rdb := newTestRedis(t)
	store := newFakeStore()
	seedAccounts(t, store)
	clock := newFakeClock()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(store).
		WithLogger(quietLogger()).
		WithClock(clock.Now).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, store: store, mr: mr, rdb: rdb, clock: clock}
}

func mustLogin(t testing.TB, e *testEngine, identifier string) *AuthResult {
	t.Helper()

	res, err := e.Authenticate(context.Background(), identifier, testPassword)
	if err != nil {
		t.Fatalf("Authenticate(%q) failed: %v", identifier, err)
	}
	if !res.Authenticated() || res.Token == "" {
		t.Fatalf("expected an authenticated result with a token, got %+v", res)
	}
	return res
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

var errStoreDown = errors.New("store down")
