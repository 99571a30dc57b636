package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	"trip-estimator/internal/adapters/cache"
	"trip-estimator/internal/adapters/routing"
	"trip-estimator/internal/adapters/storage"
	"trip-estimator/internal/api"
	"trip-estimator/internal/config"
	"trip-estimator/internal/platform/db"
	"trip-estimator/internal/platform/metrics"
	"trip-estimator/internal/platform/obs"
	"trip-estimator/internal/ports"
	"trip-estimator/internal/services"

	"go.uber.org/zap"
)

// main is the application composition root.
// It wires concrete adapters (SQL/Redis storage, ORS) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := obs.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, dialect, err := openSQL(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Schema is created on startup so a fresh SQLite file works out of the box.
	if err := storage.InitSchema(conn, dialect); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	blobs, closeBlobs, err := openBlobStore(ctx, cfg, conn, dialect, log)
	if err != nil {
		return err
	}
	defer closeBlobs()

	m := metrics.NewCollector()

	// ORS resolver uses persistent SQL caches to avoid repeated geocode/directions calls.
	resolver := routing.NewORSRouteResolver(routing.Options{
		APIKey:       cfg.ORSAPIKey,
		BaseURL:      cfg.ORSBaseURL,
		Country:      cfg.PlacesCountry,
		RouteCache:   cache.NewSQLRouteCache(conn, dialect, log),
		GeocodeCache: cache.NewSQLGeocodeCache(conn, dialect, log),
		Metrics:      m,
		Logger:       log,
	})

	state := storage.NewStateStore(blobs, log)
	estimator := services.NewEstimator(ctx, resolver, state, services.EstimatorOptions{
		Timeout: cfg.CalculationTimeout,
		Metrics: m,
		Logger:  log,
	})

	if !estimator.ResolverReady() {
		log.Warn("no OpenRouteService API key configured; calculations are disabled until one is set")
	}

	router := api.NewRouter(api.RouterDeps{
		Estimator: estimator,
		Places:    resolver,
		Metrics:   m,
		Logger:    log,
	})

	// Write timeout leaves room for a full calculation on a cold cache.
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.CalculationTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.ListenAddr), zap.String("db", dialect.String()))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("run: listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("run: shutdown: %w", err)
	}
	return nil
}

// openSQL connects to PostgreSQL when DATABASE_URL is set, otherwise to the
// local SQLite file.
func openSQL(cfg *config.Config) (*sql.DB, db.Dialect, error) {
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		return conn, db.Postgres, err
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, db.SQLite, fmt.Errorf("openSQL: create %q: %w", dir, err)
		}
	}
	conn, err := db.OpenSqlite(cfg.DBPath)
	return conn, db.SQLite, err
}

// openBlobStore picks where settings and departures live: Redis when
// REDIS_URL is set, otherwise the SQL database.
func openBlobStore(
	ctx context.Context,
	cfg *config.Config,
	conn *sql.DB,
	dialect db.Dialect,
	log *zap.Logger,
) (ports.BlobStore, func(), error) {
	if cfg.RedisURL == "" {
		return storage.NewSQLBlobStore(conn, dialect), func() {}, nil
	}

	client, err := storage.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("state stored in redis")

	return storage.NewRedisBlobStore(client, "trip-estimator:"), func() { _ = client.Close() }, nil
}
