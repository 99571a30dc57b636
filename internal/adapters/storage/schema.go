package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"trip-estimator/internal/domain"
	"trip-estimator/internal/platform/db"
)

// Initialize the database schema. The statements are valid for both SQLite
// and PostgreSQL.
func InitSchema(conn *sql.DB, dialect db.Dialect) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createStateQuery := `
	CREATE TABLE IF NOT EXISTS app_state (
		state_key TEXT PRIMARY KEY,
		state_value TEXT NOT NULL
	);
	`

	createRouteCacheQuery := `
	CREATE TABLE IF NOT EXISTS route_cache (
        route_key TEXT PRIMARY KEY,
        distance_meters INTEGER NOT NULL,
        duration_seconds INTEGER NOT NULL
    );
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
        address TEXT PRIMARY KEY,
        lon DOUBLE PRECISION NOT NULL,
        lat DOUBLE PRECISION NOT NULL
    );
	`

	statements := []string{
		createStateQuery,
		createRouteCacheQuery,
		createGeocodeCacheQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %s: exec statement #%d: %w", dialect, i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Replace the persisted departures with the list in a JSON file. The file uses
// the same layout as the persisted record. Every entry is validated before
// anything is written.
func SeedDeparturesFromJSON(ctx context.Context, store *StateStore, jsonPath string) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed departures: read %q: %w", jsonPath, err)
	}

	var data []*domain.Departure
	if err := json.Unmarshal(bytes, &data); err != nil {
		return 0, fmt.Errorf("seed departures: parse json: %w", err)
	}

	if len(data) == 0 {
		return 0, errors.New("seed departures: file holds no departures")
	}

	seen := make(map[string]struct{}, len(data))
	for i, d := range data {
		if d == nil || d.ID == "" {
			return 0, fmt.Errorf("seed departures: item at index %d: id cannot be empty", i+1)
		}
		if _, ok := seen[d.ID]; ok {
			return 0, fmt.Errorf("seed departures: item at index %d: duplicate id %q", i+1, d.ID)
		}
		seen[d.ID] = struct{}{}
	}

	if err := store.SaveDepartures(ctx, domain.NewCollection(data...)); err != nil {
		return 0, fmt.Errorf("seed departures: %w", err)
	}

	return len(data), nil
}
