package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/api"
	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/directory"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/memstore"
	"rollcall/internal/metrics"
	"rollcall/internal/store"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

// backends bundles the two repositories behind whichever storage is configured.
type backends struct {
	dirRepo directory.Repository
	attRepo attendance.Store
	users   auth.UserLookup
	// memory is the in-memory database, nil when Postgres is used.
	memory  *memstore.DB
	healthy func(context.Context) bool
	close   func() error
}

func openBackends(ctx context.Context, cfg config.App, logger *slog.Logger) (backends, error) {
	if cfg.StoreBackend == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
		db := memstore.New(nil)
		return backends{
			dirRepo: db,
			attRepo: db,
			users:   db.Users(),
			memory:  db,
			healthy: func(context.Context) bool { return true },
			close:   func() error { return nil },
		}, nil
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if db == nil {
		return backends{}, err
	}
	if err != nil {
		logger.Warn("db not reachable", "error", err)
	}
	if cfg.AutoMigrate && err == nil {
		if err := store.Migrate(ctx, db.Client); err != nil {
			_ = db.Close()
			return backends{}, err
		}
		logger.Info("schema migrated")
	}
	return backends{
		dirRepo: directory.NewRepository(db.Client),
		attRepo: attendance.NewRepository(db.Client),
		users:   auth.NewUserRepository(db.Client),
		healthy: db.Healthy,
		close:   db.Close,
	}, nil
}

func runHTTP(cfg config.App, logger *slog.Logger) error {
	ctx := context.Background()

	be, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = be.close() }()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "memory" {
		limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	} else {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, "rollcall:ratelimit", cfg.RateLimitPerMin)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	issuer := auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	issuer.Users = be.users
	if be.memory != nil {
		if err := bootstrapUser(ctx, be.memory, issuer, logger); err != nil {
			return err
		}
	}
	dir := directory.NewService(be.dirRepo, nil, logger)
	att := attendance.NewService(be.attRepo, dir, nil, logger, m)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(api.CORS())
	r.Use(api.SecurityHeaders())
	r.Use(m.GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		dbHealthy := be.healthy(c.Request.Context())
		redisHealthy := cfg.RateLimitBackend == "memory" || redisClient.Healthy(c.Request.Context())
		status := http.StatusOK
		if !dbHealthy || !redisHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "db": dbHealthy, "redis": redisHealthy})
	})

	v1 := r.Group("", httpmiddleware.GinMiddleware(limiter, logger))
	api.NewServer(dir, att, issuer, logger, nil).Register(v1)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-quit:
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", "error", err)
	}
	logger.Info("server exited")
	return nil
}

// bootstrapUser creates the only user of an in-memory store, since the admin
// CLI works against Postgres, and logs a token pair for it.
func bootstrapUser(ctx context.Context, db *memstore.DB, issuer *auth.Issuer, logger *slog.Logger) error {
	u, err := db.Users().Create(ctx, "admin")
	if err != nil {
		return err
	}
	pair, err := issuer.Issue(u.ID.String(), "teacher")
	if err != nil {
		return err
	}
	logger.Info("bootstrap user created",
		"username", u.Username,
		"user_id", u.ID,
		"access_token", pair.AccessToken,
		"refresh_token", pair.RefreshToken)
	return nil
}
