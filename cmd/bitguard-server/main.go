// Command bitguard-server is a reference HTTP service around the bitguard engine.
//
// Configuration comes from the environment (optionally seeded from a .env file):
//
//	BITGUARD_SECRET=... BITGUARD_STORE=redis BITGUARD_REDIS_ADDR=localhost:6379 bitguard-server
//
// Routes:
//
//	POST   /login            {"identifier": "...", "password": "..."} -> token pair
//	POST   /refresh          {"refresh_token": "..."} -> rotated token pair
//	POST   /logout           Authorization: Bearer <access token>
//	GET    /me               current subject and its grants
//	GET    /articles         requires Read on "articles"
//	POST   /articles         requires Create
//	DELETE /articles/{id}    requires Delete, and ownership or Full Access
//	GET    /healthz
//	GET    /metrics          Prometheus exposition
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/bitguard"
	promexport "github.com/MrEthical07/bitguard/metrics/export/prometheus"
	"github.com/MrEthical07/bitguard/permission"
	"github.com/MrEthical07/bitguard/store"
	"github.com/MrEthical07/bitguard/store/pgstore"
	"github.com/MrEthical07/bitguard/store/redisstore"
)

// backend is what the server needs from a store implementation.
type backend interface {
	store.PrincipalStore
	store.PrincipalDirectory
	store.GrantStore
	store.ModuleCatalog
	SetAdminOnly(ctx context.Context, module string, adminOnly bool) error
	Ping(ctx context.Context) (time.Duration, error)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bitguard-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.slogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	be, closeStore, err := openBackend(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer closeStore()

	for _, module := range cfg.AdminModules {
		if err := be.SetAdminOnly(ctx, module, true); err != nil {
			return fmt.Errorf("mark %s admin-only: %w", module, err)
		}
	}

	builder := bitguard.New().
		WithConfig(cfg.engineConfig()).
		WithPrincipalStore(be).
		WithGrantStore(be).
		WithModuleCatalog(be).
		WithLogger(logger).
		WithAuditSink(bitguard.NewSlogSink(logger.With("component", "audit")))
	if rdb != nil {
		builder = builder.WithRedis(rdb)
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	if cfg.BootstrapIdentifier != "" {
		if err := bootstrapPrincipal(ctx, engine, be, cfg.BootstrapIdentifier, cfg.BootstrapPassword, logger); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		promexport.NewExporter(engine),
	)

	srv := newServer(engine, be, logger, cfg)
	mux := srv.routes()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           maxBodyBytes(mux, cfg.MaxBodyBytes),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bitguard-server listening", "addr", cfg.HTTPAddr, "store", cfg.Store)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("bitguard-server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openBackend(ctx context.Context, cfg serverConfig, rdb *redis.Client) (backend, func(), error) {
	switch cfg.Store {
	case storePostgres:
		pg, err := pgstore.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return pg, func() { _ = pg.Close() }, nil
	default:
		if rdb == nil {
			return nil, nil, errors.New("redis store requires BITGUARD_REDIS_ADDR")
		}
		return redisstore.New(rdb, cfg.RedisPrefix), func() {}, nil
	}
}

// bootstrapPrincipal creates the identifier with Full Access on every known demo module
// unless it already exists.
func bootstrapPrincipal(ctx context.Context, engine *bitguard.Engine, be backend, identifier, password string, logger *slog.Logger) error {
	if _, err := be.FindPrincipalByIdentifier(ctx, identifier); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup bootstrap principal: %w", err)
	}

	hash, err := engine.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}
	p, err := be.CreatePrincipal(ctx, identifier, hash, true)
	if err != nil {
		return fmt.Errorf("create bootstrap principal: %w", err)
	}
	if err := engine.SetGrant(ctx, p.ID, articlesModule, permission.FullAccess); err != nil {
		return fmt.Errorf("grant bootstrap principal: %w", err)
	}
	logger.Info("bootstrap principal created", "subject_id", p.ID)
	return nil
}

func maxBodyBytes(next http.Handler, limit int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}
