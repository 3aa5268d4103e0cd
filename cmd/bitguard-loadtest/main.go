// Command bitguard-loadtest drives concurrent Authorize and Refresh calls through a
// bitguard engine backed by Redis, or by miniredis when no address is given.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/bitguard"
	"github.com/MrEthical07/bitguard/permission"
	"github.com/MrEthical07/bitguard/store/redisstore"
)

const loadModule = "articles"

// subjectState holds one subject's current pair. Refresh rotates it under mu.
type subjectState struct {
	id int64
	mu sync.Mutex

	access  string
	refresh string
}

func main() {
	var (
		subjects    = flag.Int("subjects", 10000, "number of principals to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (authorize + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "bitguard-load", "redis key prefix")
	)
	flag.Parse()

	if *subjects <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "subjects, concurrency, and ops must be > 0")
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
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	st := redisstore.New(client, *prefix)

	cfg := bitguard.DefaultConfig()
	cfg.Token.Secret = []byte("bitguard-loadtest-secret-not-for-production")
	cfg.Security.EnableLoginThrottle = false
	cfg.Security.EnableRefreshThrottle = false
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := bitguard.New().
		WithConfig(cfg).
		WithPrincipalStore(st).
		WithGrantStore(st).
		WithModuleCatalog(st).
		WithLogger(slog.New(slog.DiscardHandler)).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d subjects...\n", *subjects)
	startSeed := time.Now()
	states, err := seed(ctx, engine, st, *subjects)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authorizeStats := runPhase("authorize", states, *ops, *concurrency, 7919, func(s *subjectState, r *rand.Rand) error {
		s.mu.Lock()
		token := s.access
		s.mu.Unlock()
		_, err := engine.Authorize(ctx, token, loadModule, verbs[r.Intn(len(verbs))])
		return err
	})
	refreshStats := runPhase("refresh", states, *ops, *concurrency, 6151, func(s *subjectState, _ *rand.Rand) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		pair, err := engine.Refresh(ctx, s.refresh)
		if err != nil {
			return err
		}
		s.access, s.refresh = pair.AccessToken, pair.RefreshToken
		return nil
	})

	fmt.Println("---- results ----")
	if err := writeReport(os.Stdout, authorizeStats, refreshStats); err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
	}

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: allowed=%d insufficient=%d refreshed=%d revoked=%d\n",
		snap.Counters[bitguard.MetricAuthorizeAllowed],
		snap.Counters[bitguard.MetricAuthorizeInsufficient],
		snap.Counters[bitguard.MetricRefreshSuccess],
		snap.Counters[bitguard.MetricRefreshRevoked],
	)
}

// Read and Create are granted, so Update and Delete exercise the deny path.
var verbs = []string{"GET", "GET", "GET", "POST", "PUT", "DELETE"}

func seed(ctx context.Context, engine *bitguard.Engine, st *redisstore.Store, n int) ([]*subjectState, error) {
	states := make([]*subjectState, n)
	for i := 0; i < n; i++ {
		p, err := st.CreatePrincipal(ctx, fmt.Sprintf("load-%d-%d", time.Now().UnixNano(), i), "unused", true)
		if err != nil {
			return nil, err
		}
		if err := engine.SetGrant(ctx, p.ID, loadModule, permission.Read|permission.Create); err != nil {
			return nil, err
		}
		pair, err := engine.IssueTokenPair(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		states[i] = &subjectState{id: p.ID, access: pair.AccessToken, refresh: pair.RefreshToken}
	}
	return states, nil
}

func runPhase(name string, states []*subjectState, ops, concurrency int, seed int64, op func(*subjectState, *rand.Rand) error) summary {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					break
				}
				s := states[r.Intn(len(states))]
				t0 := time.Now()
				if err := op(s, r); err != nil {
					atomic.AddInt64(&failures, 1)
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	return summarize(name, time.Since(start), latencies, failures)
}
