package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"trip-estimator/internal/adapters/storage"
	"trip-estimator/internal/config"
	"trip-estimator/internal/platform/db"
	"trip-estimator/internal/platform/obs"

	"go.uber.org/zap"
)

// dbtool prepares the SQL backend: it creates the schema and, when SEED_PATH
// is set, replaces the persisted departures with the file's content.
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

	var (
		conn    *sql.DB
		dialect db.Dialect
	)
	if cfg.DatabaseURL != "" {
		conn, err = db.Open(cfg.DatabaseURL)
		dialect = db.Postgres
	} else {
		conn, err = db.OpenSqlite(cfg.DBPath)
		dialect = db.SQLite
	}
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	if err := initAndSeed(context.Background(), conn, dialect, cfg.SeedPath, log); err != nil {
		log.Fatal("dbtool failed", zap.Error(err))
	}
}

func initAndSeed(ctx context.Context, conn *sql.DB, dialect db.Dialect, seedPath string, log *zap.Logger) error {
	log.Info("initializing database schema", zap.String("dialect", dialect.String()))
	if err := storage.InitSchema(conn, dialect); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	log.Info("schema ready")

	if seedPath == "" {
		return nil
	}

	log.Info("seeding departures", zap.String("path", seedPath))
	store := storage.NewStateStore(storage.NewSQLBlobStore(conn, dialect), log)
	n, err := storage.SeedDeparturesFromJSON(ctx, store, seedPath)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	log.Info("seeding complete", zap.Int("departures", n))

	return nil
}
