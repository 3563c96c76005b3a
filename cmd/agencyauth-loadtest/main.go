// Command agencyauth-loadtest measures session store latency under
// concurrent guard lookups and login-style session replacement.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/agencyAuth/internal"
	"github.com/MrEthical07/agencyAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

type sessionState struct {
	id string
	mu sync.Mutex
}

func main() {
	flags := pflag.NewFlagSet("agencyauth-loadtest", pflag.ExitOnError)
	var (
		sessions    = flags.Int("sessions", 100000, "number of sessions to seed")
		concurrency = flags.Int("concurrency", 256, "number of concurrent workers")
		ops         = flags.Int("ops", 200000, "operations per phase (get + replace)")
		redisAddr   = flags.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flags.String("prefix", "aa", "session key prefix")
	)
	_ = flags.Parse(os.Args[1:])

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := session.NewStore(client, *prefix)

	states := make([]sessionState, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := 0; i < *sessions; i++ {
		sess, err := buildSession(i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "session id: %v\n", err)
			os.Exit(1)
		}
		states[i] = sessionState{id: sess.ID}
		if err := store.Save(ctx, sess, 2*time.Hour); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	getStats := runPhase(*ops, *concurrency, len(states), func(idx int) error {
		states[idx].mu.Lock()
		id := states[idx].id
		states[idx].mu.Unlock()
		_, err := store.Get(ctx, id)
		return err
	})

	replaceStats := runPhase(*ops, *concurrency, len(states), func(idx int) error {
		state := &states[idx]
		state.mu.Lock()
		defer state.mu.Unlock()

		next, err := buildSession(idx)
		if err != nil {
			return err
		}
		if err := store.Replace(ctx, state.id, next, 2*time.Hour); err != nil {
			return err
		}
		state.id = next.ID
		return nil
	})

	fmt.Println("---- results ----")
	printStats("get", getStats)
	printStats("replace", replaceStats)
}

// runPhase executes ops calls of op spread over concurrency workers, each
// picking a random session index.
func runPhase(ops, concurrency, n int, op func(idx int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(n)
				t0 := time.Now()
				err := op(idx)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func buildSession(i int) (*session.Session, error) {
	id, err := internal.NewSessionIDString()
	if err != nil {
		return nil, err
	}
	role := "employee"
	if i%10 == 0 {
		role = "admin"
	}
	return &session.Session{
		SchemaVersion:    session.CurrentSchemaVersion,
		ID:               id,
		SubjectID:        fmt.Sprintf("u-%d", i),
		Role:             role,
		ParentEntityID:   "ag-1",
		ParentEntityName: "Load Test Agency",
		FirstName:        "Load",
		Email:            fmt.Sprintf("u-%d@load.test", i),
		CreatedAt:        time.Now().Unix(),
		Permanent:        true,
	}, nil
}
