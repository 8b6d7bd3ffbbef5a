package kv

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Bidon15/classroom/internal/metrics"
)

// Writer defaults.
const (
	DefaultMaxPending   = 64
	DefaultWriteTimeout = 10 * time.Second
)

// writeOp is one pending mutation of a key.
type writeOp struct {
	value  string
	remove bool
}

// Writer is a fire-and-forget write queue in front of a Store.
//
// Set and Remove return immediately. Successive writes to the same key are
// coalesced so only the latest value reaches the backend, which bounds the
// queue by the number of distinct keys. Writes are applied in order on a
// single goroutine; failures are logged and counted but never returned.
// Get reads pending values first, so callers always see their own writes.
type Writer struct {
	store        Store
	logger       *slog.Logger
	metrics      *metrics.Collector
	maxPending   int
	writeTimeout time.Duration

	mu      sync.Mutex
	pending map[string]writeOp
	order   []string
	busy    bool
	closed  bool
	waiters []chan struct{}

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterLogger sets the logger for failed or dropped writes.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithWriterMetrics records write outcomes on the collector.
func WithWriterMetrics(m *metrics.Collector) WriterOption {
	return func(w *Writer) {
		w.metrics = m
	}
}

// WithMaxPending caps the number of distinct keys waiting to be written.
func WithMaxPending(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.maxPending = n
		}
	}
}

// WithWriteTimeout bounds each backend write.
func WithWriteTimeout(d time.Duration) WriterOption {
	return func(w *Writer) {
		if d > 0 {
			w.writeTimeout = d
		}
	}
}

// NewWriter starts a Writer in front of store. Call Close to flush and stop it.
func NewWriter(store Store, opts ...WriterOption) *Writer {
	w := &Writer{
		store:        store,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxPending:   DefaultMaxPending,
		writeTimeout: DefaultWriteTimeout,
		pending:      make(map[string]writeOp),
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.run()
	return w
}

// Get returns the pending value for key if one is queued, else reads the store.
func (w *Writer) Get(ctx context.Context, key string) (string, error) {
	w.mu.Lock()
	op, ok := w.pending[key]
	w.mu.Unlock()

	if ok {
		if op.remove {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return op.value, nil
	}
	return w.store.Get(ctx, key)
}

// Set queues a write of value under key. It never fails.
func (w *Writer) Set(_ context.Context, key, value string) error {
	w.enqueue(key, writeOp{value: value})
	return nil
}

// Remove queues removal of key. It never fails.
func (w *Writer) Remove(_ context.Context, key string) error {
	w.enqueue(key, writeOp{remove: true})
	return nil
}

func (w *Writer) enqueue(key string, op writeOp) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.drop(key, "writer closed")
		return
	}
	if _, queued := w.pending[key]; !queued {
		if len(w.order) >= w.maxPending {
			w.mu.Unlock()
			w.drop(key, "queue full")
			return
		}
		w.order = append(w.order, key)
	}
	w.pending[key] = op
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Writer) drop(key, reason string) {
	w.metrics.ObserveWrite(metrics.OutcomeDropped)
	w.logger.Warn("dropped store write",
		slog.String("key", key),
		slog.String("reason", reason),
	)
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

// drain applies queued writes until the queue is empty, then releases Flush waiters.
func (w *Writer) drain() {
	for {
		w.mu.Lock()
		if len(w.order) == 0 {
			w.busy = false
			waiters := w.waiters
			w.waiters = nil
			w.mu.Unlock()
			for _, ch := range waiters {
				close(ch)
			}
			return
		}
		key := w.order[0]
		w.order = w.order[1:]
		op := w.pending[key]
		delete(w.pending, key)
		w.busy = true
		w.mu.Unlock()

		w.apply(key, op)
	}
}

func (w *Writer) apply(key string, op writeOp) {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	var err error
	if op.remove {
		err = w.store.Remove(ctx, key)
	} else {
		err = w.store.Set(ctx, key, op.value)
	}

	if err != nil {
		w.metrics.ObserveWrite(metrics.OutcomeError)
		w.logger.Warn("store write failed",
			slog.String("key", key),
			slog.Bool("remove", op.remove),
			slog.String("error", err.Error()),
		)
		return
	}
	w.metrics.ObserveWrite(metrics.OutcomeOK)
}

// Pending returns the number of keys waiting to be written.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.order)
}

// Flush blocks until every write queued before the call has been applied,
// or ctx is done.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	if len(w.order) == 0 && !w.busy {
		w.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown flushes pending writes and stops the writer goroutine. Later
// writes are dropped. The underlying store is left open.
func (w *Writer) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes with the default write timeout, stops the writer and closes
// the underlying store.
func (w *Writer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	if err := w.Shutdown(ctx); err != nil {
		return err
	}
	return w.store.Close()
}
