package objectstore

import "github.com/mfolkeseth/sink-gcs/errs"

// Provider identifies the object storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
	ProviderS3    Provider = "s3"
)

// Config holds all settings needed to connect to an object storage backend.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO, or a GCS / S3-compatible
	// interoperability endpoint. Optional for ProviderS3 (defaults to AWS).
	Endpoint string

	// AccessKey is the access key ID.
	AccessKey string

	// SecretKey is the secret access key.
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Region is used by region-aware backends. Leave empty for local MinIO.
	Region string

	// Bucket is the bucket / container all keys resolve against.
	Bucket string
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey, bucket string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    false,
		Bucket:    bucket,
	}
}

// Validate reports whether the config carries enough to reach a backend.
// A sink cannot be constructed without a valid connection descriptor.
func (c *Config) Validate() error {
	if c == nil {
		return errs.New(errs.ErrKindInvalidInput, "backend config is required")
	}
	if c.Bucket == "" {
		return errs.New(errs.ErrKindInvalidInput, "backend bucket is required")
	}
	if c.Provider == ProviderMinIO && c.Endpoint == "" {
		return errs.New(errs.ErrKindInvalidInput, "minio backend requires an endpoint")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return errs.New(errs.ErrKindInvalidInput, "backend credentials are required")
	}
	return nil
}
