package sink

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfolkeseth/sink-gcs/errs"
	"github.com/mfolkeseth/sink-gcs/metrics"
	"github.com/mfolkeseth/sink-gcs/objectstore"
)

// fakeStore is an in-memory objectstore.Store for exercising the sink
// without a network backend.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]fakeObject

	// blockReads makes Get return handles whose Read blocks until the
	// handle is closed, for exercising the idle timeout.
	blockReads bool
}

type fakeObject struct {
	data        []byte
	contentType string
	etag        string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]fakeObject{}}
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (*objectstore.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	sum := md5.Sum(data)
	obj := fakeObject{data: data, contentType: contentType, etag: hex.EncodeToString(sum[:])}

	f.mu.Lock()
	f.objects[key] = obj
	f.mu.Unlock()

	return &objectstore.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: contentType, ETag: obj.etag}, nil
}

func (f *fakeStore) Get(_ context.Context, key string) (objectstore.Object, error) {
	f.mu.Lock()
	obj, ok := f.objects[key]
	f.mu.Unlock()
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no object at "+key)
	}

	info := &objectstore.ObjectInfo{
		Key:         key,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		ETag:        obj.etag,
	}
	if f.blockReads {
		return &blockingObject{unblock: make(chan struct{}), info: info}, nil
	}
	return &fakeHandle{Reader: bytes.NewReader(obj.data), info: info}, nil
}

func (f *fakeStore) Stat(_ context.Context, key string) (*objectstore.ObjectInfo, error) {
	f.mu.Lock()
	obj, ok := f.objects[key]
	f.mu.Unlock()
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no object at "+key)
	}
	return &objectstore.ObjectInfo{Key: key, Size: int64(len(obj.data)), ContentType: obj.contentType, ETag: obj.etag}, nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []objectstore.ObjectInfo
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, objectstore.ObjectInfo{Key: key})
		}
	}
	return out, nil
}

func (f *fakeStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	delete(f.objects, key)
	f.mu.Unlock()
	return nil
}

type fakeHandle struct {
	io.Reader
	info *objectstore.ObjectInfo
}

func (h *fakeHandle) Close() error                  { return nil }
func (h *fakeHandle) Info() *objectstore.ObjectInfo { return h.info }

// blockingObject blocks every Read until Close.
type blockingObject struct {
	unblock chan struct{}
	once    sync.Once
	info    *objectstore.ObjectInfo
}

func (b *blockingObject) Read([]byte) (int, error) {
	<-b.unblock
	return 0, io.ErrClosedPipe
}

func (b *blockingObject) Close() error {
	b.once.Do(func() { close(b.unblock) })
	return nil
}

func (b *blockingObject) Info() *objectstore.ObjectInfo { return b.info }

func newTestSink(t *testing.T, store objectstore.Store, timeout time.Duration) *Sink {
	t.Helper()
	s, err := New(context.Background(), &Config{
		Store:        store,
		WriteTimeout: timeout,
	})
	require.NoError(t, err)
	return s
}

// collectRecords drains the sink's metric stream until the sink closes.
func collectRecords(s *Sink) func() []metrics.Record {
	var (
		recs []metrics.Record
		done = make(chan struct{})
	)
	go func() {
		for rec := range s.Metrics() {
			recs = append(recs, rec)
		}
		close(done)
	}()
	return func() []metrics.Record {
		s.Close()
		<-done
		return recs
	}
}

func writeString(t *testing.T, s *Sink, path, mime, body string) {
	t.Helper()
	w, err := s.Write(context.Background(), path, mime)
	require.NoError(t, err)
	_, err = io.WriteString(w, body)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = New(context.Background(), &Config{})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestWrite_ReadRoundTrip(t *testing.T) {
	s := newTestSink(t, newFakeStore(), 0)
	defer s.Close()

	const body = `{"imports":{}}`
	writeString(t, s, "bar/map.json", "application/json", body)

	res, err := s.Read(context.Background(), "bar/map.json")
	require.NoError(t, err)
	got, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())

	assert.Equal(t, body, string(got))
	assert.Equal(t, "application/json", res.ContentType)
	assert.NotEmpty(t, res.ETag)
}

func TestWrite_PathValidation(t *testing.T) {
	s := newTestSink(t, newFakeStore(), 0)
	defer s.Close()

	tests := []struct {
		name  string
		path  string
		mime  string
		check func(error) bool
	}{
		{"leading dotdot", "../x", "text/plain", errs.IsPathTraversal},
		{"embedded dotdot", "/x/../../y", "text/plain", errs.IsPathTraversal},
		{"root path", "/", "text/plain", errs.IsInvalidInput},
		{"missing mime type", "x", "", errs.IsInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Write(context.Background(), tt.path, tt.mime)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected kind: %v", err)
		})
	}
}

func TestRead_NotFound(t *testing.T) {
	s := newTestSink(t, newFakeStore(), 0)
	defer s.Close()

	_, err := s.Read(context.Background(), "absent.json")
	assert.True(t, errs.IsNotFound(err))
}

func TestExist(t *testing.T) {
	s := newTestSink(t, newFakeStore(), 0)
	defer s.Close()

	writeString(t, s, "present.json", "application/json", "{}")

	assert.NoError(t, s.Exist(context.Background(), "present.json"))
	// Anchored spellings resolve to the same key.
	assert.NoError(t, s.Exist(context.Background(), "./present.json"))
	assert.NoError(t, s.Exist(context.Background(), "//present.json"))

	err := s.Exist(context.Background(), "absent.json")
	assert.True(t, errs.IsNotFound(err), "absence must be an error, not a silent pass")
}

func TestDelete_SegmentBoundary(t *testing.T) {
	s := newTestSink(t, newFakeStore(), 0)
	defer s.Close()

	ctx := context.Background()
	writeString(t, s, "dir/a", "text/plain", "a")
	writeString(t, s, "dir/a/b", "text/plain", "b")
	writeString(t, s, "dir/ab", "text/plain", "ab")

	require.NoError(t, s.Delete(ctx, "dir/a"))

	assert.True(t, errs.IsNotFound(s.Exist(ctx, "dir/a")))
	assert.True(t, errs.IsNotFound(s.Exist(ctx, "dir/a/b")))
	assert.NoError(t, s.Exist(ctx, "dir/ab"), "sibling key must survive a prefix delete")
}

func TestDelete_Idempotent(t *testing.T) {
	s := newTestSink(t, newFakeStore(), 0)
	defer s.Close()

	ctx := context.Background()
	assert.NoError(t, s.Delete(ctx, "never/written"))
	assert.NoError(t, s.Delete(ctx, "never/written"))

	writeString(t, s, "once", "text/plain", "x")
	assert.NoError(t, s.Delete(ctx, "once"))
	assert.NoError(t, s.Delete(ctx, "once"))
}

func TestDelete_RootPrefix(t *testing.T) {
	s := newTestSink(t, newFakeStore(), 0)
	defer s.Close()

	ctx := context.Background()
	writeString(t, s, "bar/map.json", "application/json", `{"imports":{}}`)
	writeString(t, s, "other/file", "text/plain", "x")

	require.NoError(t, s.Delete(ctx, ""))

	assert.True(t, errs.IsNotFound(s.Exist(ctx, "bar/map.json")))
	assert.True(t, errs.IsNotFound(s.Exist(ctx, "other/file")))
}

func TestMetrics_OneRecordPerOperation(t *testing.T) {
	s := newTestSink(t, newFakeStore(), 0)
	drain := collectRecords(s)
	ctx := context.Background()

	writeString(t, s, "a/b", "text/plain", "hello") // 1: write success

	_, err := s.Write(ctx, "../escape", "text/plain") // 2: write failure
	require.Error(t, err)

	res, err := s.Read(ctx, "a/b") // 3: read success (settles on drain)
	require.NoError(t, err)
	_, _ = io.ReadAll(res.Body)
	res.Body.Close()

	_, err = s.Read(ctx, "missing") // 4: read failure
	require.Error(t, err)

	require.NoError(t, s.Exist(ctx, "a/b"))          // 5: exist success
	require.Error(t, s.Exist(ctx, "missing"))        // 6: exist failure
	require.NoError(t, s.Delete(ctx, "a"))           // 7: delete success
	require.Error(t, s.Delete(ctx, "../outside"))    // 8: delete failure

	recs := drain()
	require.Len(t, recs, 8, "every invocation settles exactly one record")

	byOutcome := map[bool]int{}
	for _, rec := range recs {
		byOutcome[rec.Success]++
		assert.NotEmpty(t, rec.ID)
		assert.False(t, rec.Start.IsZero())
		if !rec.Success {
			assert.NotEmpty(t, rec.Reason)
		}
	}
	assert.Equal(t, 4, byOutcome[true])
	assert.Equal(t, 4, byOutcome[false])
}

func TestMetrics_ReasonTags(t *testing.T) {
	s := newTestSink(t, newFakeStore(), 0)
	drain := collectRecords(s)
	ctx := context.Background()

	_, _ = s.Write(ctx, "../x", "text/plain")
	_, _ = s.Read(ctx, "missing")

	recs := drain()
	require.Len(t, recs, 2)
	assert.Equal(t, "path_traversal", recs[0].Reason)
	assert.Equal(t, "not_found", recs[1].Reason)
}

func TestWrite_IdleTimeout(t *testing.T) {
	s := newTestSink(t, newFakeStore(), 40*time.Millisecond)
	drain := collectRecords(s)

	w, err := s.Write(context.Background(), "slow/upload", "text/plain")
	require.NoError(t, err)

	// Produce no bytes past the idle window.
	time.Sleep(120 * time.Millisecond)

	err = w.Close()
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err), "expected timeout, got %v", err)

	recs := drain()
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Success)
	assert.Equal(t, "timeout", recs[0].Reason)
}

func TestRead_IdleTimeout(t *testing.T) {
	store := newFakeStore()
	s := newTestSink(t, store, 40*time.Millisecond)
	drain := collectRecords(s)
	ctx := context.Background()

	writeString(t, s, "big/object", "text/plain", "payload")

	store.blockReads = true
	res, err := s.Read(ctx, "big/object")
	require.NoError(t, err)

	_, err = io.ReadAll(res.Body)
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err), "expected timeout, got %v", err)

	recs := drain()
	require.Len(t, recs, 2) // the seeding write plus the timed-out read
	assert.True(t, recs[0].Success)
	assert.Equal(t, "timeout", recs[1].Reason)
}

func TestWrite_Abort(t *testing.T) {
	s := newTestSink(t, newFakeStore(), 0)
	defer s.Close()

	w, err := s.Write(context.Background(), "torn/upload", "text/plain")
	require.NoError(t, err)
	_, err = io.WriteString(w, "partial")
	require.NoError(t, err)

	require.Error(t, w.Abort(nil))
	assert.True(t, errs.IsNotFound(s.Exist(context.Background(), "torn/upload")))
}

func TestConcurrentOperations(t *testing.T) {
	s := newTestSink(t, newFakeStore(), 0)
	drain := collectRecords(s)
	ctx := context.Background()

	var wg sync.WaitGroup
	const n = 16
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "concurrent/" + string(rune('a'+i))
			w, err := s.Write(ctx, key, "text/plain")
			if err != nil {
				t.Error(err)
				return
			}
			io.WriteString(w, "x")
			if err := w.Close(); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	recs := drain()
	assert.Len(t, recs, n)
}
