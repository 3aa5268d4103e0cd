package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/MrEthical07/bitguard"
)

const (
	storeRedis    = "redis"
	storePostgres = "postgres"
)

type serverConfig struct {
	Secret         string        `env:"BITGUARD_SECRET,required,unset"`
	AccessTTL      time.Duration `env:"BITGUARD_ACCESS_TTL"      envDefault:"8h"`
	RefreshTTL     time.Duration `env:"BITGUARD_REFRESH_TTL"     envDefault:"168h"`
	ProductionMode bool          `env:"BITGUARD_PRODUCTION"      envDefault:"false"`
	EmbedGrants    bool          `env:"BITGUARD_EMBED_GRANTS"    envDefault:"false"`

	HTTPAddr        string        `env:"BITGUARD_HTTP_ADDR"        envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"BITGUARD_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxBodyBytes    int64         `env:"BITGUARD_MAX_BODY_BYTES"   envDefault:"65536"`

	Store       string `env:"BITGUARD_STORE"        envDefault:"redis"`
	RedisAddr   string `env:"BITGUARD_REDIS_ADDR"   envDefault:"localhost:6379"`
	RedisPrefix string `env:"BITGUARD_REDIS_PREFIX" envDefault:"bitguard"`
	DatabaseURL string `env:"BITGUARD_DATABASE_URL"`

	LoginRPS   float64 `env:"BITGUARD_LOGIN_RPS"   envDefault:"5"`
	LoginBurst int     `env:"BITGUARD_LOGIN_BURST" envDefault:"10"`

	LogLevel     string   `env:"BITGUARD_LOG_LEVEL"     envDefault:"info"`
	AuditLog     bool     `env:"BITGUARD_AUDIT_LOG"     envDefault:"true"`
	AdminModules []string `env:"BITGUARD_ADMIN_MODULES" envSeparator:","`

	BootstrapIdentifier string `env:"BITGUARD_BOOTSTRAP_IDENTIFIER"`
	BootstrapPassword   string `env:"BITGUARD_BOOTSTRAP_PASSWORD,unset"`
}

// loadConfig reads an optional .env file and then the process environment.
func loadConfig() (serverConfig, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return serverConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	return parseConfig(env.Options{})
}

func parseConfig(opts env.Options) (serverConfig, error) {
	var cfg serverConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c serverConfig) validate() error {
	switch c.Store {
	case storeRedis:
		if c.RedisAddr == "" {
			return errors.New("BITGUARD_REDIS_ADDR is required for the redis store")
		}
	case storePostgres:
		if c.DatabaseURL == "" {
			return errors.New("BITGUARD_DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("BITGUARD_STORE must be %q or %q, got %q", storeRedis, storePostgres, c.Store)
	}
	if c.LoginRPS <= 0 || c.LoginBurst <= 0 {
		return errors.New("BITGUARD_LOGIN_RPS and BITGUARD_LOGIN_BURST must be positive")
	}
	if (c.BootstrapIdentifier == "") != (c.BootstrapPassword == "") {
		return errors.New("BITGUARD_BOOTSTRAP_IDENTIFIER and BITGUARD_BOOTSTRAP_PASSWORD must be set together")
	}
	return nil
}

// engineConfig maps process settings onto the engine config. Throttles need Redis, so
// they are off when no Redis address is configured.
func (c serverConfig) engineConfig() bitguard.Config {
	cfg := bitguard.DefaultConfig()
	cfg.Token.Secret = []byte(c.Secret)
	cfg.Token.AccessTTL = c.AccessTTL
	cfg.Token.RefreshTTL = c.RefreshTTL
	cfg.Token.EmbedGrants = c.EmbedGrants
	cfg.Security.ProductionMode = c.ProductionMode
	if c.RedisAddr == "" {
		cfg.Security.EnableLoginThrottle = false
		cfg.Security.EnableIPThrottle = false
		cfg.Security.EnableRefreshThrottle = false
	}
	cfg.Redis.Prefix = c.RedisPrefix
	cfg.Audit.Enabled = c.AuditLog
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func (c serverConfig) slogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
