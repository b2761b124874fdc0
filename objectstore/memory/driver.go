// Package memory provides an in-process implementation of objectstore.Store
// for development and tests. Objects live in a map; nothing is persisted.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mfolkeseth/sink-gcs/errs"
	"github.com/mfolkeseth/sink-gcs/objectstore"
)

// Driver is an in-memory objectstore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	mu      sync.RWMutex
	objects map[string]entry
}

type entry struct {
	data         []byte
	contentType  string
	etag         string
	lastModified time.Time
}

// New returns an empty in-memory store.
func New() *Driver {
	return &Driver{objects: map[string]entry{}}
}

// --- objectstore.Store implementation ---

func (d *Driver) Ping(context.Context) error { return nil }

func (d *Driver) Close() error { return nil }

func (d *Driver) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (*objectstore.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	sum := md5.Sum(data)
	e := entry{
		data:         data,
		contentType:  contentType,
		etag:         hex.EncodeToString(sum[:]),
		lastModified: time.Now(),
	}

	d.mu.Lock()
	d.objects[key] = e
	d.mu.Unlock()

	return e.info(key), nil
}

func (d *Driver) Get(_ context.Context, key string) (objectstore.Object, error) {
	d.mu.RLock()
	e, ok := d.objects[key]
	d.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no object at "+key)
	}

	return &object{Reader: bytes.NewReader(e.data), info: e.info(key)}, nil
}

func (d *Driver) Stat(_ context.Context, key string) (*objectstore.ObjectInfo, error) {
	d.mu.RLock()
	e, ok := d.objects[key]
	d.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no object at "+key)
	}
	return e.info(key), nil
}

func (d *Driver) List(_ context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []objectstore.ObjectInfo
	for key, e := range d.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, *e.info(key))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (d *Driver) Remove(_ context.Context, key string) error {
	d.mu.Lock()
	delete(d.objects, key)
	d.mu.Unlock()
	return nil
}

// --- internal types ---

func (e entry) info(key string) *objectstore.ObjectInfo {
	return &objectstore.ObjectInfo{
		Key:          key,
		Size:         int64(len(e.data)),
		ContentType:  e.contentType,
		ETag:         e.etag,
		LastModified: e.lastModified,
	}
}

type object struct {
	*bytes.Reader
	info *objectstore.ObjectInfo
}

func (o *object) Close() error                  { return nil }
func (o *object) Info() *objectstore.ObjectInfo { return o.info }
