//go:build integration
// +build integration

package test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	agencyAuth "github.com/MrEthical07/agencyAuth"
	"github.com/MrEthical07/agencyAuth/session"
)

// cmdCounter is a go-redis Hook that counts Redis round-trips: single
// commands and pipeline or transaction calls.
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		// One network round-trip regardless of command count.
		h.pipelines.Add(1)
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) RoundTrips() int64 { return h.commands.Load() + h.pipelines.Load() }

func newCountedClient(t *testing.T) (*redis.Client, *cmdCounter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	counter := &cmdCounter{}
	rdb.AddHook(counter)
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	// go-redis may emit handshake commands on first use.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter.Reset()
	return rdb, counter
}

func TestSessionGetRedisBudget(t *testing.T) {
	rdb, counter := newCountedClient(t)
	store := session.NewStore(rdb, "aa")
	ctx := context.Background()

	if err := store.Save(ctx, makeSession("u1", "sid-get"), time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	counter.Reset()

	if _, err := store.Get(ctx, "sid-get"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := counter.RoundTrips(); got != 1 {
		t.Errorf("Store.Get used %d round-trips; budget is 1 (GET)", got)
	}
}

func TestSessionSaveRedisBudget(t *testing.T) {
	rdb, counter := newCountedClient(t)
	store := session.NewStore(rdb, "aa")

	if err := store.Save(context.Background(), makeSession("u1", "sid-save"), time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := counter.RoundTrips(); got != 1 {
		t.Errorf("Store.Save used %d round-trips; budget is 1 (MULTI/EXEC)", got)
	}
}

func TestSessionReplaceRedisBudget(t *testing.T) {
	rdb, counter := newCountedClient(t)
	store := session.NewStore(rdb, "aa")
	ctx := context.Background()

	if err := store.Save(ctx, makeSession("u1", "sid-old"), time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	counter.Reset()

	if err := store.Replace(ctx, "sid-old", makeSession("u1", "sid-new"), time.Hour); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got := counter.RoundTrips(); got > 2 {
		t.Errorf("Store.Replace used %d round-trips; budget is 2 (GET + MULTI/EXEC)", got)
	}
}

func TestSessionDeleteRedisBudget(t *testing.T) {
	rdb, counter := newCountedClient(t)
	store := session.NewStore(rdb, "aa")
	ctx := context.Background()

	if err := store.Save(ctx, makeSession("u1", "sid-delete"), time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	counter.Reset()

	if err := store.Delete(ctx, "sid-delete"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := counter.RoundTrips(); got > 2 {
		t.Errorf("Store.Delete used %d round-trips; budget is 2 (GET + MULTI/EXEC)", got)
	}

	counter.Reset()
	if err := store.Delete(ctx, "sid-delete"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if got := counter.RoundTrips(); got != 1 {
		t.Errorf("deleting a missing session used %d round-trips; budget is 1 (GET)", got)
	}
}

func TestGuardRedisBudget(t *testing.T) {
	rdb, counter := newCountedClient(t)
	engine := newIntegrationEngine(t, rdb)
	ctx := context.Background()

	res, err := engine.Authenticate(ctx, "employee@x.com", testPassword)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	counter.Reset()

	d := engine.Guard(ctx, res.Token, agencyAuth.GuardPlain)
	if d.Disposition != agencyAuth.DispositionAllow {
		t.Fatalf("expected allow, got %v", d.Disposition)
	}
	if got := counter.RoundTrips(); got != 1 {
		t.Errorf("Guard used %d round-trips; budget is 1 (GET)", got)
	}
	t.Logf("Guard: %d round-trips", counter.RoundTrips())
}
