package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter budgets. A disabled throttle never touches Redis.
type Config struct {
	Prefix string

	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration

	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// hitScript increments a fixed-window counter. The window starts on the first
// hit, so later hits never extend it.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// window is one fixed-window budget stored under key.
type window struct {
	key   string
	limit int64
	ttl   time.Duration
}

// Limiter enforces login and refresh budgets with Redis counters.
type Limiter struct {
	rdb redis.UniversalClient
	cfg Config
}

// New creates a Limiter backed by rdb.
func New(rdb redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "bitguard"
	}
	return &Limiter{rdb: rdb, cfg: cfg}
}

func (l *Limiter) identifierWindow(identifier string) window {
	return window{
		key:   l.cfg.Prefix + ":rl:" + identifier,
		limit: int64(l.cfg.MaxLoginAttempts),
		ttl:   l.cfg.LoginCooldownDuration,
	}
}

func (l *Limiter) loginWindows(identifier, ip string) []window {
	ws := []window{l.identifierWindow(identifier)}
	if l.cfg.EnableIPThrottle && ip != "" {
		ws = append(ws, window{
			key:   l.cfg.Prefix + ":rli:" + ip,
			limit: int64(l.cfg.MaxLoginAttempts),
			ttl:   l.cfg.LoginCooldownDuration,
		})
	}
	return ws
}

func (l *Limiter) refreshWindow(subject int64) window {
	return window{
		key:   l.cfg.Prefix + ":rr:" + strconv.FormatInt(subject, 10),
		limit: int64(l.cfg.MaxRefreshAttempts),
		ttl:   l.cfg.RefreshCooldownDuration,
	}
}

// CheckLogin returns ErrRateLimited once the identifier, or the IP when IP
// throttling is on, has used up MaxLoginAttempts failures in its window.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	if !l.cfg.EnableLoginThrottle {
		return nil
	}
	for _, w := range l.loginWindows(identifier, ip) {
		n, err := l.count(ctx, w.key)
		if err != nil {
			return err
		}
		if n >= w.limit {
			return ErrRateLimited
		}
	}
	return nil
}

// IncrementLogin records one failed login against every applicable window.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	if !l.cfg.EnableLoginThrottle {
		return nil
	}
	for _, w := range l.loginWindows(identifier, ip) {
		if _, err := l.hit(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

// ResetLogin clears the identifier window after a successful login. The IP
// window is kept.
func (l *Limiter) ResetLogin(ctx context.Context, identifier, _ string) error {
	if !l.cfg.EnableLoginThrottle {
		return nil
	}
	if err := l.rdb.Del(ctx, l.identifierWindow(identifier).key).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// LoginAttempts returns the current failure count for identifier.
func (l *Limiter) LoginAttempts(ctx context.Context, identifier string) (int, error) {
	n, err := l.count(ctx, l.identifierWindow(identifier).key)
	return int(n), err
}

// CheckRefresh counts one refresh attempt for subject and rejects attempts
// beyond MaxRefreshAttempts in the window.
func (l *Limiter) CheckRefresh(ctx context.Context, subject int64) error {
	if !l.cfg.EnableRefreshThrottle {
		return nil
	}
	w := l.refreshWindow(subject)
	n, err := l.hit(ctx, w)
	if err != nil {
		return err
	}
	if n > w.limit {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) count(ctx context.Context, key string) (int64, error) {
	n, err := l.rdb.Get(ctx, key).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, unavailable(err)
	case n < 0:
		return 0, nil
	}
	return n, nil
}

func (l *Limiter) hit(ctx context.Context, w window) (int64, error) {
	n, err := hitScript.Run(ctx, l.rdb, []string{w.key}, w.ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}
