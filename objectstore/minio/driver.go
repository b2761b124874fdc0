// Package minio provides a MinIO implementation of objectstore.Store.
//
// The driver speaks the S3 XML protocol, so it also covers any S3-compatible
// endpoint, including the GCS interoperability API.
//
// Usage:
//
//	cfg := objectstore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin", "assets")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
package minio

import (
	"context"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mfolkeseth/sink-gcs/errs"
	"github.com/mfolkeseth/sink-gcs/objectstore"
)

// Driver is a MinIO implementation of objectstore.Store, bound to a single
// bucket. It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
	bucket string
}

// New connects to MinIO using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *objectstore.Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}

	d := &Driver{client: client, bucket: cfg.Bucket}

	if err := d.Ping(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// --- objectstore.Store implementation ---

// Ping verifies the bucket is reachable with the configured credentials.
func (d *Driver) Ping(ctx context.Context) error {
	ok, err := d.client.BucketExists(ctx, d.bucket)
	if err != nil {
		return mapError(err, "ping failed")
	}
	if !ok {
		return errs.New(errs.ErrKindNotFound, "bucket "+d.bucket+" does not exist")
	}
	return nil
}

// Close is a no-op for MinIO — the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// Put streams body into the object at key. A size of -1 switches the SDK to
// multipart upload with an unknown total length.
func (d *Driver) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*objectstore.ObjectInfo, error) {
	info, err := d.client.PutObject(ctx, d.bucket, key, body, size, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, mapError(err, "failed to put object")
	}

	return &objectstore.ObjectInfo{
		Key:          key,
		Size:         info.Size,
		ContentType:  contentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// Get opens a streaming handle to the object at key.
// The caller MUST call Object.Close() after reading.
func (d *Driver) Get(ctx context.Context, key string) (objectstore.Object, error) {
	obj, err := d.client.GetObject(ctx, d.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}

	// GetObject is lazy; Stat forces the first round-trip so a missing
	// object surfaces here instead of on first read.
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, mapError(err, "failed to stat object after get")
	}

	return &object{
		ReadCloser: obj,
		info: &objectstore.ObjectInfo{
			Key:          key,
			Size:         stat.Size,
			ContentType:  stat.ContentType,
			ETag:         stat.ETag,
			LastModified: stat.LastModified,
		},
	}, nil
}

// Stat returns metadata for the object at key without downloading its content.
func (d *Driver) Stat(ctx context.Context, key string) (*objectstore.ObjectInfo, error) {
	stat, err := d.client.StatObject(ctx, d.bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}

	return &objectstore.ObjectInfo{
		Key:          stat.Key,
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		ETag:         stat.ETag,
		LastModified: stat.LastModified,
	}, nil
}

// List returns every object whose key starts with prefix, recursively.
func (d *Driver) List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	listOpts := miniogo.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}

	var results []objectstore.ObjectInfo
	for obj := range d.client.ListObjects(ctx, d.bucket, listOpts) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list objects")
		}

		results = append(results, objectstore.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}

	return results, nil
}

// Remove deletes the object at key. Removing an absent object succeeds,
// matching S3 DeleteObject semantics.
func (d *Driver) Remove(ctx context.Context, key string) error {
	if err := d.client.RemoveObject(ctx, d.bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
		return mapError(err, "failed to remove object")
	}
	return nil
}

// --- internal types ---

// object wraps a MinIO GetObject response and exposes objectstore.Object.
type object struct {
	io.ReadCloser
	info *objectstore.ObjectInfo
}

func (o *object) Info() *objectstore.ObjectInfo {
	return o.info
}
