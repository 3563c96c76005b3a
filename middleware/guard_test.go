package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	agencyAuth "github.com/MrEthical07/agencyAuth"
	"github.com/MrEthical07/agencyAuth/password"
	"github.com/MrEthical07/agencyAuth/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const testPassword = "correct-password-123"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestEngine(t *testing.T) (*agencyAuth.Engine, *testClock) {
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

	cfg := agencyAuth.DevelopmentConfig()
	cfg.Session.Lifetime = time.Hour
	cfg.Cookie.SecretKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	store := memory.New()
	store.PutParentEntity("ag-1", "Norte Travel", true)
	store.Put(agencyAuth.CredentialRecord{
		SubjectID: "admin-1", PasswordHash: hash, Active: true,
		Role: agencyAuth.RoleAdmin, FirstName: "Ana", Email: "admin@x.com",
	})
	store.Put(agencyAuth.CredentialRecord{
		SubjectID: "emp-1", PasswordHash: hash, Active: true, Approved: true,
		Role: agencyAuth.RoleEmployee, ParentEntityID: "ag-1",
		FirstName: "Eva", Email: "employee@x.com",
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}

	engine, err := agencyAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(store).
		WithLogger(logger).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, clock
}

func loginToken(t *testing.T, engine *agencyAuth.Engine, identifier string) string {
	t.Helper()

	res, err := engine.Authenticate(context.Background(), identifier, testPassword)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	return res.Token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "no identity", http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, id.SubjectID)
	})
}

func serve(engine *agencyAuth.Engine, mw func(http.Handler) http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: engine.CookiePolicy().Name, Value: token})
	}
	rr := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rr, req)
	return rr
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func flashOf(t *testing.T, engine *agencyAuth.Engine, rr *httptest.ResponseRecorder) Flash {
	t.Helper()

	c := findCookie(rr, flashCookieName)
	if c == nil {
		t.Fatal("expected a flash cookie")
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	f, ok := PopFlash(httptest.NewRecorder(), req, engine.CookiePolicy())
	if !ok {
		t.Fatal("flash cookie did not decode")
	}
	return f
}

func TestGuardAllowsAndAttachesIdentity(t *testing.T) {
	engine, _ := newTestEngine(t)
	token := loginToken(t, engine, "employee@x.com")

	rr := serve(engine, RequireLogin(engine), "/dashboard", token)
	if rr.Code != http.StatusOK || rr.Body.String() != "emp-1" {
		t.Fatalf("expected 200 emp-1, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestGuardUnauthenticatedRedirectsToLogin(t *testing.T) {
	engine, _ := newTestEngine(t)

	rr := serve(engine, RequireLogin(engine), "/dashboard", "")
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestGuardUnauthenticatedAPIGetsJSON(t *testing.T) {
	engine, _ := newTestEngine(t)

	rr := serve(engine, RequireLogin(engine), "/api/reports", "bogus")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body messageBody
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Msg != agencyAuth.MsgUnauthenticated {
		t.Fatalf("unexpected message %q", body.Msg)
	}
}

func TestGuardForbiddenRedirectsWithFlash(t *testing.T) {
	engine, _ := newTestEngine(t)
	token := loginToken(t, engine, "employee@x.com")

	rr := serve(engine, RequireAdmin(engine), "/admin/panel", token)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/dashboard" {
		t.Fatalf("expected redirect to /dashboard, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	f := flashOf(t, engine, rr)
	if f.Category != FlashError || f.Message != agencyAuth.MsgForbidden {
		t.Fatalf("unexpected flash %+v", f)
	}
	if c := findCookie(rr, engine.CookiePolicy().Name); c != nil {
		t.Fatal("forbidden must not touch the session cookie")
	}
}

func TestGuardForbiddenAPI(t *testing.T) {
	engine, _ := newTestEngine(t)
	token := loginToken(t, engine, "employee@x.com")

	rr := serve(engine, RequireFinancial(engine), "/api/invoices", token)
	if rr.Code != http.StatusForbidden || !strings.Contains(rr.Body.String(), agencyAuth.MsgForbidden) {
		t.Fatalf("expected 403 with message, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestGuardExpiredClearsCookie(t *testing.T) {
	engine, clock := newTestEngine(t)
	token := loginToken(t, engine, "admin@x.com")
	clock.Advance(61 * time.Minute)

	rr := serve(engine, RequireAdmin(engine), "/admin/panel", token)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	f := flashOf(t, engine, rr)
	if f.Category != FlashWarning || f.Message != agencyAuth.MsgSessionExpired {
		t.Fatalf("unexpected flash %+v", f)
	}
	c := findCookie(rr, engine.CookiePolicy().Name)
	if c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected the session cookie to be cleared, got %+v", c)
	}
}

func TestGuardExpiredAPI(t *testing.T) {
	engine, clock := newTestEngine(t)
	token := loginToken(t, engine, "admin@x.com")
	clock.Advance(2 * time.Hour)

	rr := serve(engine, RequireLogin(engine), "/api/me", token)
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), agencyAuth.MsgSessionExpiredAPI) {
		t.Fatalf("expected 401 expired, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestGuardNilEngine(t *testing.T) {
	rr := httptest.NewRecorder()
	Guard(nil, agencyAuth.GuardPlain)(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
