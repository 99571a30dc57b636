package storage

import (
	"context"
	"testing"
	"trip-estimator/internal/platform/db"
	"trip-estimator/internal/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseBlobStore(t *testing.T, store ports.BlobStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, SettingsKey)
	require.ErrorIs(t, err, ports.ErrBlobNotFound)

	require.NoError(t, store.Put(ctx, SettingsKey, []byte(`{"fuelPrice":7}`)))
	require.NoError(t, store.Put(ctx, SettingsKey, []byte(`{"fuelPrice":8}`)))
	require.NoError(t, store.Put(ctx, DeparturesKey, []byte(`[]`)))

	got, err := store.Get(ctx, SettingsKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fuelPrice":8}`, string(got))

	got, err = store.Get(ctx, DeparturesKey)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestMemoryBlobStore(t *testing.T) {
	exerciseBlobStore(t, NewMemoryBlobStore())
}

func TestSQLBlobStoreSqlite(t *testing.T) {
	conn, err := db.OpenSqlite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, InitSchema(conn, db.SQLite))
	// Schema creation is idempotent.
	require.NoError(t, InitSchema(conn, db.SQLite))

	exerciseBlobStore(t, NewSQLBlobStore(conn, db.SQLite))
}

func TestRedisBlobStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisBlobStore(client, "estimator:")
	exerciseBlobStore(t, store)

	assert.True(t, mr.Exists("estimator:"+SettingsKey))
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	_ = client.Close()

	_, err = ConnectRedis(context.Background(), "not a url")
	assert.Error(t, err)
}
