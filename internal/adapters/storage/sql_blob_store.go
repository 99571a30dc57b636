package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"trip-estimator/internal/platform/db"
	"trip-estimator/internal/ports"
)

// SQL-backed implementation of the BlobStore port (SQLite or PostgreSQL).
type SQLBlobStore struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLBlobStore(conn *sql.DB, dialect db.Dialect) *SQLBlobStore {
	return &SQLBlobStore{DB: conn, Dialect: dialect}
}

func (s *SQLBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.DB == nil {
		return nil, errors.New("sql blob store: DB is nil")
	}

	q := s.Dialect.Rebind(`
	SELECT state_value
	FROM app_state
	WHERE state_key = ?;
	`)

	var value string
	err := s.DB.QueryRowContext(ctx, q, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %q: query app_state table: %w", key, err)
	}

	return []byte(value), nil
}

func (s *SQLBlobStore) Put(ctx context.Context, key string, value []byte) error {
	if s.DB == nil {
		return errors.New("sql blob store: DB is nil")
	}

	q := s.Dialect.Rebind(`
	INSERT INTO app_state (state_key, state_value)
	VALUES (?, ?)
	ON CONFLICT (state_key) DO UPDATE
	SET state_value = EXCLUDED.state_value;
	`)

	if _, err := s.DB.ExecContext(ctx, q, key, string(value)); err != nil {
		return fmt.Errorf("put blob %q: %w", key, err)
	}

	return nil
}
