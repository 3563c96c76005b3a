//go:build integration
// +build integration

package test

import (
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	agencyAuth "github.com/MrEthical07/agencyAuth"
	"github.com/MrEthical07/agencyAuth/password"
	"github.com/MrEthical07/agencyAuth/session"
	"github.com/MrEthical07/agencyAuth/store/memory"
)

const testPassword = "correct-password-123"

func newIntegrationStore(t *testing.T) (*session.Store, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := session.NewStore(rdb, "aa")

	return store, rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func makeSession(subjectID, sessionID string) *session.Session {
	return &session.Session{
		ID:               sessionID,
		SubjectID:        subjectID,
		Role:             "employee",
		ParentEntityID:   "ag-1",
		ParentEntityName: "Norte Travel",
		FirstName:        "Eva",
		Email:            subjectID + "@x.com",
		CreatedAt:        time.Now().Unix(),
		Permanent:        true,
	}
}

// newIntegrationEngine builds an engine over rdb and a memory store holding
// one active employee, employee@x.com.
func newIntegrationEngine(t *testing.T, rdb redis.UniversalClient) *agencyAuth.Engine {
	t.Helper()

	cfg := agencyAuth.DevelopmentConfig()
	cfg.Cookie.SecretKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.RateLimit.Backend = agencyAuth.RateLimitMemory

	hasher, err := password.NewHasher(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		t.Fatalf("hasher init failed: %v", err)
	}
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	mem := memory.New()
	mem.PutParentEntity("ag-1", "Norte Travel", true)
	mem.Put(agencyAuth.CredentialRecord{
		SubjectID:        "emp-1",
		Email:            "employee@x.com",
		PasswordHash:     hash,
		FirstName:        "Eva",
		Role:             agencyAuth.RoleEmployee,
		Active:           true,
		Approved:         true,
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
	return engine
}
