// Package config loads sink, backend and gateway settings from a YAML file
// with environment-variable overrides.
//
// A .env file in the working directory is loaded first (ignored when absent),
// then SINK_* variables override whatever the YAML file set. Secrets are
// expected to arrive through the environment, not the file.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/mfolkeseth/sink-gcs/errs"
	"github.com/mfolkeseth/sink-gcs/objectstore"
	"github.com/mfolkeseth/sink-gcs/sink"
)

// Config is the full configuration tree.
type Config struct {
	Sink    SinkConfig    `yaml:"sink"`
	Backend BackendConfig `yaml:"backend"`
	Gateway GatewayConfig `yaml:"gateway"`
	Log     LogConfig     `yaml:"log"`
}

// SinkConfig tunes the sink façade.
type SinkConfig struct {
	// WriteTimeoutMS is the per-stream idle timeout in milliseconds.
	// Zero keeps the sink's permissive default.
	WriteTimeoutMS int `yaml:"write_timeout_ms"`

	// MetricsBuffer is the metric record channel capacity.
	MetricsBuffer int `yaml:"metrics_buffer"`
}

// BackendConfig describes the object storage connection.
type BackendConfig struct {
	Provider  string `yaml:"provider"` // "minio" or "s3"
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
}

// GatewayConfig tunes the HTTP gateway.
type GatewayConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig tunes logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{Provider: string(objectstore.ProviderMinIO)},
		Gateway: GatewayConfig{Addr: ":8080"},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads the YAML file at path (skipped when path is empty), then applies
// environment overrides on top of it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read config file", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to parse config file", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides config fields from SINK_* environment variables,
// loading a .env file first when one exists.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	setString(&c.Backend.Provider, "SINK_BACKEND_PROVIDER")
	setString(&c.Backend.Endpoint, "SINK_BACKEND_ENDPOINT")
	setString(&c.Backend.AccessKey, "SINK_BACKEND_ACCESS_KEY")
	setString(&c.Backend.SecretKey, "SINK_BACKEND_SECRET_KEY")
	setString(&c.Backend.Region, "SINK_BACKEND_REGION")
	setString(&c.Backend.Bucket, "SINK_BACKEND_BUCKET")
	setString(&c.Gateway.Addr, "SINK_GATEWAY_ADDR")
	setString(&c.Log.Level, "SINK_LOG_LEVEL")
	if v := os.Getenv("SINK_BACKEND_USE_SSL"); v != "" {
		c.Backend.UseSSL = v == "true" || v == "1"
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// SinkConfig converts the tree into the sink constructor's Config.
func (c *Config) SinkConfig() *sink.Config {
	return &sink.Config{
		Backend: &objectstore.Config{
			Provider:  objectstore.Provider(c.Backend.Provider),
			Endpoint:  c.Backend.Endpoint,
			AccessKey: c.Backend.AccessKey,
			SecretKey: c.Backend.SecretKey,
			UseSSL:    c.Backend.UseSSL,
			Region:    c.Backend.Region,
			Bucket:    c.Backend.Bucket,
		},
		WriteTimeout:  time.Duration(c.Sink.WriteTimeoutMS) * time.Millisecond,
		MetricsBuffer: c.Sink.MetricsBuffer,
	}
}
