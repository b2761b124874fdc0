// Package s3 provides an AWS SDK v2 implementation of objectstore.Store.
//
// It targets AWS S3 by default; setting Config.Endpoint points it at any
// S3-compatible server (MinIO, GCS interoperability, LocalStack) with
// path-style addressing.
package s3

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mfolkeseth/sink-gcs/errs"
	"github.com/mfolkeseth/sink-gcs/objectstore"
)

// Driver is an S3 implementation of objectstore.Store, bound to a single
// bucket. It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *awss3.Client
	bucket string
}

// New builds an S3 client from the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *objectstore.Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to build aws config", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			scheme := "http://"
			if cfg.UseSSL {
				scheme = "https://"
			}
			o.BaseEndpoint = aws.String(scheme + cfg.Endpoint)
			// S3-compatible servers generally do not support virtual-hosted
			// bucket addressing.
			o.UsePathStyle = true
		}
	})

	d := &Driver{client: client, bucket: cfg.Bucket}

	if err := d.Ping(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// --- objectstore.Store implementation ---

// Ping verifies the bucket is reachable with the configured credentials.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(d.bucket),
	})
	if err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close is a no-op for S3 — the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// Put streams body into the object at key. The SDK handles chunked transfer
// when the size is unknown, so body is never buffered in full.
func (d *Driver) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*objectstore.ObjectInfo, error) {
	input := &awss3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	out, err := d.client.PutObject(ctx, input)
	if err != nil {
		return nil, mapError(err, "failed to put object")
	}

	return &objectstore.ObjectInfo{
		Key:         key,
		Size:        size,
		ContentType: contentType,
		ETag:        aws.ToString(out.ETag),
	}, nil
}

// Get opens a streaming handle to the object at key.
// The caller MUST call Object.Close() after reading.
func (d *Driver) Get(ctx context.Context, key string) (objectstore.Object, error) {
	out, err := d.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}

	return &object{
		ReadCloser: out.Body,
		info: &objectstore.ObjectInfo{
			Key:          key,
			Size:         aws.ToInt64(out.ContentLength),
			ContentType:  aws.ToString(out.ContentType),
			ETag:         aws.ToString(out.ETag),
			LastModified: aws.ToTime(out.LastModified),
		},
	}, nil
}

// Stat returns metadata for the object at key without downloading its content.
func (d *Driver) Stat(ctx context.Context, key string) (*objectstore.ObjectInfo, error) {
	out, err := d.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}

	return &objectstore.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         aws.ToString(out.ETag),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// List returns every object whose key starts with prefix, recursively.
func (d *Driver) List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	input := &awss3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var results []objectstore.ObjectInfo
	paginator := awss3.NewListObjectsV2Paginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(err, "failed to list objects")
		}
		for _, obj := range page.Contents {
			results = append(results, objectstore.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         aws.ToString(obj.ETag),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	return results, nil
}

// Remove deletes the object at key. S3 DeleteObject succeeds on absent keys.
func (d *Driver) Remove(ctx context.Context, key string) error {
	_, err := d.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return mapError(err, "failed to remove object")
	}
	return nil
}

// --- internal types ---

// object wraps a GetObject response body and exposes objectstore.Object.
type object struct {
	io.ReadCloser
	info *objectstore.ObjectInfo
}

func (o *object) Info() *objectstore.ObjectInfo {
	return o.info
}
