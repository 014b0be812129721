package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/bro-Nik/portfolio-backend/internal/app"
	"github.com/bro-Nik/portfolio-backend/internal/app/httpapi"
	"github.com/bro-Nik/portfolio-backend/internal/app/metrics"
	"github.com/bro-Nik/portfolio-backend/internal/app/storage/postgres"
	"github.com/bro-Nik/portfolio-backend/internal/cache"
	"github.com/bro-Nik/portfolio-backend/internal/config"
	"github.com/bro-Nik/portfolio-backend/internal/logging"
	"github.com/bro-Nik/portfolio-backend/internal/middleware"
	"github.com/bro-Nik/portfolio-backend/internal/platform/migrations"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.New("portfolios", "info", "json").WithError(err).Fatal("load config")
	}

	log := logging.New("portfolios", cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("service failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	var stores app.Stores
	if cfg.Database.URL != "" {
		db, err := openDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.Apply(db.DB); err != nil {
			return err
		}

		store := postgres.New(db)
		stores = app.Stores{Portfolios: store, Wallets: store, Transactions: store}
		log.Info("Using PostgreSQL storage")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	var c cache.Cache = cache.Noop{}
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		c = redisCache
		log.Info("Redis cache enabled")
	}

	application := app.New(stores, app.Options{
		Cache:    c,
		CacheTTL: cfg.Redis.TTL,
		Logger:   log,
	})

	skipAuth := []string{"/healthz", "/metrics"}
	auth := middleware.NewAuthMiddleware([]byte(cfg.Auth.JWTSecret), log, skipAuth)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, log)
	limiter.StartCleanup(time.Minute)
	cors := middleware.NewCORSMiddleware([]string{"*"})

	var handler http.Handler = httpapi.NewHandler(application)
	handler = limiter.Handler(handler)
	handler = auth.Handler(handler)
	handler = metrics.InstrumentHandler(handler)
	handler = middleware.RequestLogger(log)(handler)
	handler = cors.Handler(handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
