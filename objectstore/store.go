// Package objectstore defines the unified interface for remote object
// storage backends.
//
// All providers (MinIO, S3-compatible, …) implement the Store interface.
// Callers depend only on this package — never on a specific provider package.
//
// Usage:
//
//	cfg := objectstore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin", "assets")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	info, err := store.Put(ctx, "bar/map.json", body, -1, "application/json")
package objectstore

import (
	"context"
	"io"
)

// Store is the single interface all object storage providers must implement.
// Implementations are safe for concurrent use by multiple goroutines.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, goroutines, etc.).
	Close() error

	// Put streams body into the object at key, declaring contentType.
	// size is the number of bytes to read from body, or -1 when unknown
	// (the provider then uses chunked/multipart transfer).
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*ObjectInfo, error)

	// Get opens a streaming handle to the object at key. It returns a
	// not_found error when the object does not exist; the error surfaces
	// before the handle is returned, never on first read.
	// The caller MUST call Object.Close() after reading.
	Get(ctx context.Context, key string) (Object, error)

	// Stat returns metadata for the object at key without downloading its
	// content. It returns a not_found error when the object does not exist.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)

	// List returns every object whose key starts with prefix, recursively.
	// An empty prefix lists the whole bucket. Naive string-prefix matching
	// is intentional here; segment-boundary filtering belongs to callers.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Remove deletes the object at key. Removing an absent object is not
	// an error.
	Remove(ctx context.Context, key string) error
}
