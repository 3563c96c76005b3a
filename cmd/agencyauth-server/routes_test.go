package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	agencyAuth "github.com/MrEthical07/agencyAuth"
	"github.com/MrEthical07/agencyAuth/store/memory"
)

const testPassword = "correct-password-123"

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
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
	cfg.Cookie.SecretKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true

	hash, err := hashWith(cfg, testPassword)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	mem := memory.New()
	mem.PutParentEntity("ag-1", "Norte Travel", true)
	mem.Put(agencyAuth.CredentialRecord{
		SubjectID:    "emp-1",
		Email:        "employee@x.com",
		PasswordHash: hash,
		FirstName:    "Eva",
		Role:         agencyAuth.RoleEmployee,
		Active:       true,
		Approved:     true,

		ParentEntityID:   "ag-1",
		ParentEntityName: "Norte Travel",
	})

	log := logrus.New()
	log.SetOutput(io.Discard)

	engine, err := agencyAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(mem).
		WithLogger(log).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	srv := httptest.NewServer(newRouter(engine, log))
	t.Cleanup(srv.Close)
	return srv, mem
}

func noRedirectClient(t *testing.T) *http.Client {
	t.Helper()
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	return nil
}

func TestServerLoginThenAPI(t *testing.T) {
	srv, _ := newTestServer(t)
	client := noRedirectClient(t)

	resp, err := client.PostForm(srv.URL+"/login", url.Values{
		"email":    {"employee@x.com"},
		"password": {testPassword},
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/dashboard" {
		t.Fatalf("expected /dashboard, got %q", loc)
	}
	sess := sessionCookie(resp)
	if sess == nil || sess.Value == "" {
		t.Fatal("expected session cookie")
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/me", nil)
	req.AddCookie(sess)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("api request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body["subject_id"] != "emp-1" || body["parent_entity"] != "Norte Travel" {
		t.Fatalf("unexpected identity %v", body)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/reports", nil)
	req.AddCookie(sess)
	resp2, err := client.Do(req)
	if err != nil {
		t.Fatalf("api request failed: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for employee on financial route, got %d", resp2.StatusCode)
	}
}

func TestServerRejectedLoginReturnsToLoginPage(t *testing.T) {
	srv, _ := newTestServer(t)
	client := noRedirectClient(t)

	resp, err := client.PostForm(srv.URL+"/login", url.Values{
		"email":    {"employee@x.com"},
		"password": {"wrong"},
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	resp.Body.Close()
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("expected /login, got %q", loc)
	}
	if sessionCookie(resp) != nil {
		t.Fatal("rejected login must not set a session cookie")
	}
}

func TestServerRegisterCreatesPendingAccount(t *testing.T) {
	srv, mem := newTestServer(t)
	client := noRedirectClient(t)

	resp, err := client.PostForm(srv.URL+"/register", url.Values{
		"email":            {"New@X.com"},
		"password":         {"a-long-password"},
		"password_confirm": {"a-long-password"},
		"first_name":       {"Nia"},
		"last_name":        {"Gomez"},
		"parent_entity_id": {"ag-1"},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	resp.Body.Close()
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("expected /login, got %q", loc)
	}

	rec, err := mem.FindByIdentifier(t.Context(), "new@x.com")
	if err != nil {
		t.Fatalf("expected registered record: %v", err)
	}
	if rec.Active || rec.Approved {
		t.Fatalf("registered account must be pending, got %+v", rec)
	}
}

func TestServerMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(data), "agencyauth_login_success_total") {
		t.Fatalf("expected agencyauth counters in output, got:\n%s", data)
	}
}
