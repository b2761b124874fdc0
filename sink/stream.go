package sink

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mfolkeseth/sink-gcs/errs"
	"github.com/mfolkeseth/sink-gcs/metrics"
	"github.com/mfolkeseth/sink-gcs/objectstore"
)

// Writer is an open writable stream bound to a destination key. Bytes written
// to it are piped into the backend upload without intermediate buffering.
// Close ends the stream, triggers upload completion and reports the final
// upload error; Abort cancels the upload.
//
// If no bytes are written for longer than the sink's idle timeout, the
// upload is aborted and Close returns a timeout-classified error.
type Writer struct {
	pw    *io.PipeWriter
	guard *idleGuard
	done  chan struct{}
	err   error
}

func (s *Sink) newWriter(ctx context.Context, key, contentType string, start time.Time) *Writer {
	pr, pw := io.Pipe()

	w := &Writer{pw: pw, done: make(chan struct{})}
	w.guard = newIdleGuard(s.timeout, func() {
		pr.CloseWithError(errs.New(errs.ErrKindTimeout,
			"write stream to "+key+" stalled for "+s.timeout.String()))
	})

	go func() {
		_, err := s.store.Put(ctx, key, pr, -1, contentType)
		w.guard.stop()
		if err != nil {
			if w.guard.fired() && !errs.IsTimeout(err) {
				err = errs.Wrap(errs.ErrKindTimeout, "write stream to "+key+" stalled", err)
			}
			// Unblock any writer still pushing into the pipe.
			pr.CloseWithError(err)
			w.err = err
		}
		s.emit(metrics.OpWrite, key, start, w.err)
		close(w.done)
	}()

	return w
}

// Write pushes p into the upload stream, resetting the idle clock.
func (w *Writer) Write(p []byte) (int, error) {
	w.guard.reset()
	n, err := w.pw.Write(p)
	if n > 0 {
		w.guard.reset()
	}
	return n, err
}

// Close signals end-of-input, waits for the upload to settle and returns the
// upload outcome. It must be called exactly once; the operation's metric
// settles with it.
func (w *Writer) Close() error {
	w.pw.Close()
	<-w.done
	return w.err
}

// Abort cancels the upload with cause and waits for settlement. The pending
// upload fails and the operation's metric records the failure.
func (w *Writer) Abort(cause error) error {
	if cause == nil {
		cause = errs.New(errs.ErrKindBackendFailed, "write aborted by caller")
	}
	w.pw.CloseWithError(cause)
	<-w.done
	return w.err
}

// ReadResult is the settled result of opening a read stream: the byte stream
// itself plus the entity tag and content type the backend reported.
type ReadResult struct {
	// Body streams the object's content. The caller owns it and MUST
	// close it; the read operation's metric settles when the stream is
	// drained, closed or fails.
	Body io.ReadCloser

	// ETag is the backend's opaque version/integrity token.
	ETag string

	// ContentType is the stored MIME type.
	ContentType string

	// Size is the object's byte size. -1 if unknown.
	Size int64
}

// reader wraps a backend object handle with the idle timeout and settles the
// read operation's metric exactly once.
type reader struct {
	obj     objectstore.Object
	guard   *idleGuard
	settled sync.Once
	settle  func(error)
}

func (s *Sink) newReader(obj objectstore.Object, key string, start time.Time) *reader {
	r := &reader{obj: obj}
	r.settle = func(err error) {
		r.settled.Do(func() {
			s.emit(metrics.OpRead, key, start, err)
		})
	}
	r.guard = newIdleGuard(s.timeout, func() {
		// Abort only this stream; the consumer sees a timeout on its
		// next read, and the metric settles even if it never returns.
		r.settle(errs.New(errs.ErrKindTimeout,
			"read stream from "+key+" stalled for "+s.timeout.String()))
		obj.Close()
	})
	return r
}

func (r *reader) Read(p []byte) (int, error) {
	n, err := r.obj.Read(p)
	if n > 0 {
		r.guard.reset()
	}
	if err != nil {
		r.guard.stop()
		if r.guard.fired() {
			err = errs.New(errs.ErrKindTimeout, "read stream stalled")
			r.settle(err)
			return n, err
		}
		if err == io.EOF {
			r.settle(nil)
		} else {
			r.settle(err)
		}
	}
	return n, err
}

// Close releases the underlying handle. Closing before EOF settles the
// operation as a success — the caller chose to stop consuming.
func (r *reader) Close() error {
	r.guard.stop()
	err := r.obj.Close()
	r.settle(nil)
	return err
}

// idleGuard fires onFire once when its clock runs out without a reset.
// The clock starts armed at construction.
type idleGuard struct {
	d       time.Duration
	timer   *time.Timer
	expired atomic.Bool
}

func newIdleGuard(d time.Duration, onFire func()) *idleGuard {
	g := &idleGuard{d: d}
	g.timer = time.AfterFunc(d, func() {
		g.expired.Store(true)
		onFire()
	})
	return g
}

// reset rearms the clock. A guard that already fired stays fired.
func (g *idleGuard) reset() {
	if !g.expired.Load() {
		g.timer.Reset(g.d)
	}
}

func (g *idleGuard) stop() {
	g.timer.Stop()
}

func (g *idleGuard) fired() bool {
	return g.expired.Load()
}
