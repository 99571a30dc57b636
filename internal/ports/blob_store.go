package ports

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by BlobStore.Get for a key that was never written.
var ErrBlobNotFound = errors.New("blob not found")

// Port: a key-based store of opaque records, the persistence boundary for
// settings and departures.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}
