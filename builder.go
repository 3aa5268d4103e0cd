package bitguard

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/bitguard/internal/audit"
	"github.com/MrEthical07/bitguard/internal/flows"
	"github.com/MrEthical07/bitguard/internal/rate"
	"github.com/MrEthical07/bitguard/password"
	"github.com/MrEthical07/bitguard/store"
	"github.com/MrEthical07/bitguard/token"
)

// Builder assembles an Engine. A Builder is single use: the second Build fails.
type Builder struct {
	config     Config
	principals store.PrincipalStore
	grants     store.GrantStore
	catalog    store.ModuleCatalog
	redis      redis.UniversalClient
	logger     *slog.Logger
	auditSink  AuditSink
	now        func() time.Time
	newTokenID func() string
	built      bool
}

// New returns a builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is cloned.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets Token.Secret.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.Token.Secret = cloneBytes(secret)
	return b
}

// WithPrincipalStore sets the store holding principals and their refresh slot. Required.
func (b *Builder) WithPrincipalStore(s store.PrincipalStore) *Builder {
	b.principals = s
	return b
}

// WithGrantStore sets the per-module grant store. Required.
func (b *Builder) WithGrantStore(s store.GrantStore) *Builder {
	b.grants = s
	return b
}

// WithModuleCatalog sets the admin-only module lookup. Without one no module is
// admin-only.
func (b *Builder) WithModuleCatalog(c store.ModuleCatalog) *Builder {
	b.catalog = c
	return b
}

// WithRedis sets the client used by the login and refresh throttles.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides time.Now for token issuance, validation and audit timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithTokenIDGenerator overrides the refresh token_id source (uuid v4 by default).
func (b *Builder) WithTokenIDGenerator(fn func() string) *Builder {
	b.newTokenID = fn
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.principals == nil {
		return nil, errors.New("principal store required")
	}
	if b.grants == nil {
		return nil, errors.New("grant store required")
	}
	throttled := cfg.Security.EnableLoginThrottle || cfg.Security.EnableRefreshThrottle
	if throttled && b.redis == nil {
		return nil, errors.New("login and refresh throttles require redis client")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	newTokenID := b.newTokenID
	if newTokenID == nil {
		newTokenID = uuid.NewString
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// -------- CODEC / HASHER --------
	codec, err := token.NewCodec(cfg.Token.Secret, now)
	if err != nil {
		return nil, err
	}
	hasher, err := password.NewHasher(cfg.Password.hasherConfig())
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		codec:      codec,
		hasher:     hasher,
		principals: b.principals,
		grants:     b.grants,
		catalog:    b.catalog,
		logger:     logger,
		now:        now,
		metrics:    NewMetrics(cfg.Metrics),
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, now)

	// -------- RATE LIMITER --------
	if throttled {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                  cfg.Redis.Prefix,
			EnableLoginThrottle:     cfg.Security.EnableLoginThrottle,
			EnableIPThrottle:        cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:        cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration:   cfg.Security.LoginCooldownDuration,
			EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
			MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
		})
	}

	// -------- FLOWS --------
	validate := flows.ValidateDeps{DecodeVerify: codec.DecodeVerify}
	issue := flows.IssueDeps{
		Encode:      codec.Encode,
		Now:         now,
		NewTokenID:  newTokenID,
		AccessTTL:   cfg.Token.AccessTTL,
		RefreshTTL:  cfg.Token.RefreshTTL,
		EmbedGrants: cfg.Token.EmbedGrants,
		ListGrants:  b.grants.ListGrants,
	}

	refreshDeps := flows.RefreshDeps{
		Validate:   validate,
		Issue:      issue,
		Principals: b.principals,
	}
	loginDeps := flows.LoginDeps{
		Issue:          issue,
		Principals:     b.principals,
		VerifyPassword: hasher.Verify,
		DummyHash:      hasher.DummyHash(),
		ClientIP:       clientIPFromContext,
		Warn:           logger.Warn,
	}
	if engine.rateLimiter != nil {
		refreshDeps.RateLimiter = engine.rateLimiter
		loginDeps.RateLimiter = engine.rateLimiter
	}

	var catalog flows.AuthorizeModuleCatalog
	if b.catalog != nil {
		catalog = b.catalog
	}

	engine.flow = flows.New(flows.Deps{
		Validate: validate,
		Issue:    flows.IssuePairDeps{Issue: issue, Principals: b.principals},
		Refresh:  refreshDeps,
		Revoke:   flows.RevokeDeps{Validate: validate, Principals: b.principals},
		Authorize: flows.AuthorizeDeps{
			Validate: validate,
			Grants:   b.grants,
			Catalog:  catalog,
		},
		Login: loginDeps,
	})

	b.built = true

	return engine, nil
}
