package bitguard

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/bitguard/store"
	"github.com/MrEthical07/bitguard/store/redisstore"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
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

func testSecret() []byte {
	return []byte("bitguard-test-secret-0123456789abcdef")
}

// testConfig is DefaultConfig with a secret, throttles off and cheap argon2 parameters.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = testSecret()
	cfg.Security.EnableLoginThrottle = false
	cfg.Security.EnableRefreshThrottle = false
	cfg.Password = PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	return cfg
}

type testEnv struct {
	engine *Engine
	store  *redisstore.Store
	rdb    *redis.Client
	mr     *miniredis.Miniredis
	clock  *testClock
}

func newTestEnv(t testing.TB, cfg Config, configure ...func(*Builder)) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	st := redisstore.New(rdb, redisstore.DefaultPrefix)
	clock := newTestClock()

	b := New().
		WithConfig(cfg).
		WithPrincipalStore(st).
		WithGrantStore(st).
		WithModuleCatalog(st).
		WithRedis(rdb).
		WithClock(clock.Now)
	for _, fn := range configure {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		_ = rdb.Close()
		mr.Close()
		t.Fatalf("build engine: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testEnv{engine: engine, store: st, rdb: rdb, mr: mr, clock: clock}
}

func (env *testEnv) createPrincipal(t testing.TB, identifier, password string, active bool) store.Principal {
	t.Helper()
	hash, err := env.engine.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	p, err := env.store.CreatePrincipal(context.Background(), identifier, hash, active)
	if err != nil {
		t.Fatalf("create principal: %v", err)
	}
	return p
}

// principalWithID provisions a principal whose allocated id is exactly id.
func (env *testEnv) principalWithID(t *testing.T, id int64, identifier string) store.Principal {
	t.Helper()
	if err := env.mr.Set(redisstore.DefaultPrefix+":pseq", strconv.FormatInt(id-1, 10)); err != nil {
		t.Fatalf("seed sequence: %v", err)
	}
	p := env.createPrincipal(t, identifier, "correct-password-123", true)
	if p.ID != id {
		t.Fatalf("expected principal id %d, got %d", id, p.ID)
	}
	return p
}
