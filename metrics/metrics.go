// Package metrics emits one immutable Record per sink operation.
//
// Each sink instance owns one Emitter. Operations push into it on every exit
// path — success, validation failure, timeout, backend error — so the record
// stream is a complete account of sink activity. Publishing is non-blocking:
// a slow or absent consumer never stalls an operation; overflow records are
// dropped and counted instead.
//
// Every record is also reflected into Prometheus collectors registered on the
// emitter's registry, so operators get aggregate counters and latency
// histograms without consuming the channel.
package metrics

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Operation identifies which sink operation produced a Record.
type Operation string

const (
	OpWrite  Operation = "write"
	OpRead   Operation = "read"
	OpExist  Operation = "exist"
	OpDelete Operation = "delete"
)

// Record is an immutable account of one operation attempt.
// It is created exactly once per invocation and never mutated after emission.
type Record struct {
	// ID uniquely identifies this record for downstream correlation.
	ID string

	// Operation is the sink operation that produced the record.
	Operation Operation

	// Key is the normalized storage key the operation targeted.
	// Empty when the operation failed before a key could be derived.
	Key string

	// Start is when the operation was invoked.
	Start time.Time

	// Duration is the wall-clock time from invocation to settlement.
	Duration time.Duration

	// Success reports the operation outcome.
	Success bool

	// Reason classifies a failure (error kind tag). Empty on success.
	Reason string
}

// Emitter is a push-only channel of operation Records owned by one sink
// instance. It stays open for the sink's lifetime and is safe for concurrent
// emission from multiple in-flight operations.
type Emitter struct {
	mu     sync.Mutex
	ch     chan Record
	closed bool

	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	dropped    prometheus.Counter
}

// DefaultBuffer is the channel capacity used when none is configured.
const DefaultBuffer = 256

// NewEmitter creates an Emitter with the given channel capacity and registers
// its collectors on reg. A zero or negative buffer uses DefaultBuffer; a nil
// reg skips Prometheus registration.
func NewEmitter(reg prometheus.Registerer, buffer int) *Emitter {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	e := &Emitter{
		ch: make(chan Record, buffer),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sink",
			Name:      "operations_total",
			Help:      "Sink operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sink",
			Name:      "operation_duration_seconds",
			Help:      "Wall-clock duration from invocation to settlement.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sink",
			Name:      "records_dropped_total",
			Help:      "Records dropped because the channel buffer was full.",
		}),
	}

	if reg != nil {
		reg.MustRegister(e.operations, e.durations, e.dropped)
	}

	return e
}

// Emit publishes rec. It assigns an ID when the caller left it empty, updates
// the Prometheus collectors, and pushes to the channel without blocking; when
// the buffer is full the record is dropped and counted. Emitting after Close
// updates collectors only.
func (e *Emitter) Emit(rec Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	outcome := "success"
	if !rec.Success {
		outcome = "failure"
	}
	e.operations.WithLabelValues(string(rec.Operation), outcome).Inc()
	e.durations.WithLabelValues(string(rec.Operation)).Observe(rec.Duration.Seconds())

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.ch <- rec:
	default:
		e.dropped.Inc()
	}
}

// Records returns the receive side of the emitter. The channel is closed only
// when the owning sink closes the emitter.
func (e *Emitter) Records() <-chan Record {
	return e.ch
}

// Close closes the record channel. Further Emit calls still update the
// Prometheus collectors but publish no records. Close is idempotent.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.ch)
}
