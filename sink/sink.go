// Package sink exposes a uniform streaming interface (write, read, delete,
// exist) over a remote object-storage backend.
//
// Every operation first normalizes the caller-supplied path into a
// namespace-confined storage key (package keypath), then delegates the
// transfer to the configured objectstore.Store. Each invocation — successful
// or not — settles with exactly one metrics.Record on the sink's emitter, so
// the record stream is a complete account of sink activity.
//
// Concurrency: multiple operations may be in flight against the same backend;
// the sink holds no in-process locks. The backend serializes conflicting
// writes to the same key at its own layer, and the sink makes no atomicity
// promise across concurrent writers to one key.
//
// Usage:
//
//	s, err := sink.New(ctx, &sink.Config{
//		Backend: objectstore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin", "assets"),
//	})
//	if err != nil { ... }
//	defer s.Close()
//
//	w, err := s.Write(ctx, "bar/map.json", "application/json")
//	if err != nil { ... }
//	io.Copy(w, body)
//	err = w.Close() // settles the upload
package sink

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mfolkeseth/sink-gcs/errs"
	"github.com/mfolkeseth/sink-gcs/keypath"
	"github.com/mfolkeseth/sink-gcs/logger"
	"github.com/mfolkeseth/sink-gcs/metrics"
	"github.com/mfolkeseth/sink-gcs/objectstore"
	"github.com/mfolkeseth/sink-gcs/objectstore/minio"
	"github.com/mfolkeseth/sink-gcs/objectstore/s3"
)

// DefaultWriteTimeout bounds how long a stream may stall without moving
// bytes when no timeout is configured. It is deliberately generous: the
// timeout is opt-in tightening, not a default hazard.
const DefaultWriteTimeout = 10 * time.Minute

// Config holds constructor-time sink settings.
type Config struct {
	// Backend describes the object storage connection. Required unless
	// Store is set.
	Backend *objectstore.Config

	// Store optionally injects a pre-built backend, overriding Backend.
	// The sink does not close an injected store.
	Store objectstore.Store

	// WriteTimeout is the per-stream idle timeout: if no bytes move in
	// either direction for this long, the stream is aborted with a
	// timeout-classified error. Zero means DefaultWriteTimeout.
	WriteTimeout time.Duration

	// MetricsBuffer is the record channel capacity. Zero means
	// metrics.DefaultBuffer.
	MetricsBuffer int

	// Registry receives the sink's Prometheus collectors. When nil the
	// sink creates a private registry, exposed via Sink.Registry.
	Registry *prometheus.Registry

	// Logger receives structured operation logs. When nil logging is
	// disabled.
	Logger *logger.Logger
}

// Sink is the public façade over one bucket of one object storage backend.
// It is safe for concurrent use by multiple goroutines.
type Sink struct {
	store     objectstore.Store
	ownsStore bool
	timeout   time.Duration
	emitter   *metrics.Emitter
	registry  *prometheus.Registry
	log       *logger.Logger
}

// New validates cfg, connects to the backend and returns a ready Sink.
// A missing connection descriptor is a configuration error.
func New(ctx context.Context, cfg *Config) (*Sink, error) {
	if cfg == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "sink config is required")
	}

	store := cfg.Store
	ownsStore := false
	if store == nil {
		if cfg.Backend == nil {
			return nil, errs.New(errs.ErrKindInvalidInput, "backend config is required")
		}
		var err error
		switch cfg.Backend.Provider {
		case objectstore.ProviderMinIO, "":
			store, err = minio.New(ctx, cfg.Backend)
		case objectstore.ProviderS3:
			store, err = s3.New(ctx, cfg.Backend)
		default:
			err = errs.New(errs.ErrKindInvalidInput,
				"unsupported backend provider "+string(cfg.Backend.Provider))
		}
		if err != nil {
			return nil, err
		}
		ownsStore = true
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Sink{
		store:     store,
		ownsStore: ownsStore,
		timeout:   timeout,
		emitter:   metrics.NewEmitter(registry, cfg.MetricsBuffer),
		registry:  registry,
		log:       log,
	}, nil
}

// Metrics returns the sink's record stream. One record settles per operation
// invocation; the channel stays open until Close.
func (s *Sink) Metrics() <-chan metrics.Record {
	return s.emitter.Records()
}

// Registry returns the Prometheus registry carrying the sink's collectors.
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// Close closes the metrics emitter and, when the sink built its own backend,
// the backend connection. Streams still in flight settle independently.
func (s *Sink) Close() error {
	s.emitter.Close()
	if s.ownsStore {
		return s.store.Close()
	}
	return nil
}

// Write opens a writable stream bound to path with the declared mimeType.
// The caller pipes bytes into the returned Writer; Close ends the stream and
// triggers the upload. The operation's metric settles when the upload
// completes or fails, never at Write return.
func (s *Sink) Write(ctx context.Context, path, mimeType string) (*Writer, error) {
	start := time.Now()

	key, err := s.operationKey(path)
	if err != nil {
		s.emit(metrics.OpWrite, key, start, err)
		return nil, err
	}
	if mimeType == "" {
		err := errs.New(errs.ErrKindInvalidInput, "mime type is required")
		s.emit(metrics.OpWrite, key, start, err)
		return nil, err
	}

	return s.newWriter(ctx, key, mimeType, start), nil
}

// Read opens a readable stream for the object at path. A missing object
// surfaces as a not_found error here, before any handle is returned. The
// operation's metric settles when the stream is drained, closed or fails.
func (s *Sink) Read(ctx context.Context, path string) (*ReadResult, error) {
	start := time.Now()

	key, err := s.operationKey(path)
	if err != nil {
		s.emit(metrics.OpRead, key, start, err)
		return nil, err
	}

	obj, err := s.store.Get(ctx, key)
	if err != nil {
		s.emit(metrics.OpRead, key, start, err)
		return nil, err
	}

	info := obj.Info()
	return &ReadResult{
		Body:        s.newReader(obj, key, start),
		ETag:        info.ETag,
		ContentType: info.ContentType,
		Size:        info.Size,
	}, nil
}

// Exist probes the object at path via backend metadata lookup. It returns
// nil when the object is present and a not_found-kind error when absent, so
// presence-checking composes with ordinary error handling. Transport
// failures surface with their own kinds, distinguishable from absence.
func (s *Sink) Exist(ctx context.Context, path string) error {
	start := time.Now()

	key, err := s.operationKey(path)
	if err != nil {
		s.emit(metrics.OpExist, key, start, err)
		return err
	}

	_, err = s.store.Stat(ctx, key)
	s.emit(metrics.OpExist, key, start, err)
	return err
}

// Delete removes the object subtree rooted at path. The normalized key is a
// prefix matched on path-segment boundaries: deleting "dir/a" removes
// "dir/a" and "dir/a/b" but never "dir/ab". Zero matches is a success —
// deleting something nonexistent is idempotent. An empty path deletes the
// whole namespace.
func (s *Sink) Delete(ctx context.Context, path string) error {
	start := time.Now()

	key, err := keypath.Normalize(path)
	if err != nil {
		s.emit(metrics.OpDelete, "", start, err)
		return err
	}

	objs, err := s.store.List(ctx, key)
	if err != nil {
		s.emit(metrics.OpDelete, key, start, err)
		return err
	}

	for _, obj := range objs {
		if !underPrefix(obj.Key, key) {
			continue
		}
		if err := s.store.Remove(ctx, obj.Key); err != nil {
			s.emit(metrics.OpDelete, key, start, err)
			return err
		}
	}

	s.emit(metrics.OpDelete, key, start, nil)
	return nil
}

// operationKey normalizes path for operations that address a single object.
// The root key is not addressable by write/read/exist.
func (s *Sink) operationKey(path string) (string, error) {
	key, err := keypath.Normalize(path)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "path resolves to the storage root")
	}
	return key, nil
}

// underPrefix reports whether key falls under prefix on a path-segment
// boundary. An empty prefix matches everything.
func underPrefix(key, prefix string) bool {
	if prefix == "" {
		return true
	}
	return key == prefix || strings.HasPrefix(key, prefix+"/")
}

// emit settles one metrics record for an operation attempt and logs it.
func (s *Sink) emit(op metrics.Operation, key string, start time.Time, err error) {
	rec := metrics.Record{
		Operation: op,
		Key:       key,
		Start:     start,
		Duration:  time.Since(start),
		Success:   err == nil,
	}
	if err != nil {
		rec.Reason = errs.KindOf(err).String()
	}
	s.emitter.Emit(rec)

	opLog := s.log.With().
		Str("operation", string(op)).
		Str("key", key).
		Dur("duration", rec.Duration).
		Logger()
	if err != nil {
		opLog.With().Err(err).Logger().Warn("sink operation failed")
	} else {
		opLog.Debug("sink operation complete")
	}
}
