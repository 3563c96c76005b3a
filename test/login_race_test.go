//go:build integration
// +build integration

package test

import (
	"context"
	"sync"
	"testing"

	agencyAuth "github.com/MrEthical07/agencyAuth"
)

func TestConcurrentLoginsReplacingSamePriorSession(t *testing.T) {
	_, rdb, cleanup := newIntegrationStore(t)
	defer cleanup()
	engine := newIntegrationEngine(t, rdb)
	ctx := context.Background()

	first, err := engine.Authenticate(ctx, "employee@x.com", testPassword)
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}

	const workers = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	tokens := make(chan string, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			res, err := engine.Authenticate(agencyAuth.WithSessionToken(ctx, first.Token), "employee@x.com", testPassword)
			if err != nil {
				errs <- err
				return
			}
			tokens <- res.Token
		}()
	}

	close(start)
	wg.Wait()
	close(tokens)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent login failed: %v", err)
	}

	if d := engine.Guard(ctx, first.Token, agencyAuth.GuardPlain); d.Disposition != agencyAuth.DispositionUnauthenticated {
		t.Fatalf("prior session must be destroyed, got %v", d.Disposition)
	}

	seen := 0
	for token := range tokens {
		seen++
		if d := engine.Guard(ctx, token, agencyAuth.GuardPlain); d.Disposition != agencyAuth.DispositionAllow {
			t.Fatalf("new session must be valid, got %v", d.Disposition)
		}
	}
	if seen != workers {
		t.Fatalf("expected %d sessions, got %d", workers, seen)
	}
}
