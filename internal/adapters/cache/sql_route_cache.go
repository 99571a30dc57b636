package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"trip-estimator/internal/platform/db"
	"trip-estimator/internal/platform/obs"
	"trip-estimator/internal/ports"

	"go.uber.org/zap"
)

// SQLRouteCache is a SQL-backed cache of resolved routes, keyed by the
// ordered location list. Locations are expected to be normalized by the caller.
type SQLRouteCache struct {
	DB      *sql.DB
	Dialect db.Dialect
	log     *zap.Logger
}

func NewSQLRouteCache(conn *sql.DB, dialect db.Dialect, log *zap.Logger) *SQLRouteCache {
	return &SQLRouteCache{DB: conn, Dialect: dialect, log: log}
}

// RouteKey encodes an ordered location list into a cache key. Order is part of
// the key: the same stops visited in a different order are a different route.
func RouteKey(locations []string) (string, error) {
	if len(locations) < 2 {
		return "", errors.New("route key: need at least origin and destination")
	}
	b, err := json.Marshal(locations)
	if err != nil {
		return "", fmt.Errorf("route key: %w", err)
	}
	return string(b), nil
}

// Fetch a cached route. The boolean is false on a miss.
func (s *SQLRouteCache) Get(ctx context.Context, locations []string) (_ ports.RouteResult, _ bool, err error) {
	defer obs.Time(ctx, s.log, "route.cache.Get")(&err)

	if s.DB == nil {
		return ports.RouteResult{}, false, errors.New("route cache: db is nil")
	}

	key, err := RouteKey(locations)
	if err != nil {
		return ports.RouteResult{}, false, fmt.Errorf("get route cache: %w", err)
	}

	q := s.Dialect.Rebind(`
	SELECT distance_meters, duration_seconds
    FROM route_cache
    WHERE route_key = ?;
	`)

	var r ports.RouteResult
	err = s.DB.QueryRowContext(ctx, q, key).Scan(&r.DistanceMeters, &r.DurationSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.RouteResult{}, false, nil
	}
	if err != nil {
		return ports.RouteResult{}, false, fmt.Errorf("get route cache: query route_cache table: %w", err)
	}

	return r, true, nil
}

// Store a resolved route.
func (s *SQLRouteCache) Put(ctx context.Context, locations []string, r ports.RouteResult) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}

	key, err := RouteKey(locations)
	if err != nil {
		return fmt.Errorf("insert route cache: %w", err)
	}

	q := s.Dialect.Rebind(`
	INSERT INTO route_cache (route_key, distance_meters, duration_seconds)
    VALUES (?, ?, ?)
	ON CONFLICT (route_key) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds;
	`)

	if _, err := s.DB.ExecContext(ctx, q, key, r.DistanceMeters, r.DurationSeconds); err != nil {
		return fmt.Errorf("insert route cache key=%q: %w", key, err)
	}

	return nil
}
