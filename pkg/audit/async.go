package audit

import (
	"context"
	"sync"
	"time"
)

// AsyncOptions tunes batching. Zero fields take the defaults noted below.
type AsyncOptions struct {
	BufferSize     int           // queued records before Store falls back to a direct write (1000)
	BatchSize      int           // records per flush (100)
	BatchTimeout   time.Duration // max wait for a partial batch (100ms)
	StorageTimeout time.Duration // per-flush deadline (5s)

	// OnError receives the outcome of failed flushes that contain records
	// queued with Enqueue, since no caller is waiting for them.
	OnError func(err error, dropped int)
}

func (o AsyncOptions) withDefaults() AsyncOptions {
	if o.BufferSize <= 0 {
		o.BufferSize = 1000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = 100 * time.Millisecond
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = 5 * time.Second
	}
	return o
}

type pending[T any] struct {
	record T
	result chan error
}

// AsyncWriter collects records from many callers into batches written by a
// single background worker. Store blocks until the batch holding the record
// has been flushed, so callers still observe storage errors.
type AsyncWriter[T any] struct {
	next    BatchWriter[T]
	queue   chan pending[T]
	done    chan struct{}
	closeMu sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	opts    AsyncOptions
}

// NewAsyncWriter starts the worker. Call Close on shutdown to flush what is queued.
func NewAsyncWriter[T any](next BatchWriter[T], opts AsyncOptions) *AsyncWriter[T] {
	if next == nil {
		panic("audit: batch writer cannot be nil")
	}
	opts = opts.withDefaults()

	w := &AsyncWriter[T]{
		next:  next,
		queue: make(chan pending[T], opts.BufferSize),
		done:  make(chan struct{}),
		opts:  opts,
	}
	w.wg.Add(1)
	go w.worker()
	return w
}

// Store queues record and waits for its batch to be written. When the buffer
// is full the record is written directly instead of being dropped.
func (w *AsyncWriter[T]) Store(ctx context.Context, record T) error {
	w.closeMu.RLock()
	if w.closed {
		w.closeMu.RUnlock()
		return ErrWriterClosed
	}

	result := make(chan error, 1)
	select {
	case w.queue <- pending[T]{record: record, result: result}:
		w.closeMu.RUnlock()
	case <-ctx.Done():
		w.closeMu.RUnlock()
		return ctx.Err()
	default:
		w.closeMu.RUnlock()
		return w.next.StoreBatch(ctx, []T{record})
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue queues record without waiting for the flush. Failures are reported
// to AsyncOptions.OnError. When the buffer is full the record is written
// directly with ctx.
func (w *AsyncWriter[T]) Enqueue(ctx context.Context, record T) error {
	w.closeMu.RLock()
	if w.closed {
		w.closeMu.RUnlock()
		return ErrWriterClosed
	}
	select {
	case w.queue <- pending[T]{record: record}:
		w.closeMu.RUnlock()
		return nil
	default:
		w.closeMu.RUnlock()
		return w.next.StoreBatch(ctx, []T{record})
	}
}

func (w *AsyncWriter[T]) worker() {
	defer w.wg.Done()

	batch := make([]T, 0, w.opts.BatchSize)
	waiters := make([]chan error, 0, w.opts.BatchSize)
	ticker := time.NewTicker(w.opts.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Detached from callers: a cancelled request must not abort a shared batch.
		ctx, cancel := context.WithTimeout(context.Background(), w.opts.StorageTimeout)
		err := w.next.StoreBatch(ctx, batch)
		cancel()

		detached := 0
		for _, ch := range waiters {
			if ch == nil {
				detached++
				continue
			}
			ch <- err // buffered, never blocks
		}
		if err != nil && detached > 0 && w.opts.OnError != nil {
			w.opts.OnError(err, detached)
		}
		clear(batch)
		clear(waiters)
		batch = batch[:0]
		waiters = waiters[:0]
	}

	add := func(p pending[T]) {
		batch = append(batch, p.record)
		waiters = append(waiters, p.result)
		if len(batch) >= w.opts.BatchSize {
			flush()
		}
	}

	for {
		select {
		case p := <-w.queue:
			add(p)
		case <-ticker.C:
			flush()
		case <-w.done:
			for {
				select {
				case p := <-w.queue:
					add(p)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting records and flushes the queue. ctx bounds the wait.
func (w *AsyncWriter[T]) Close(ctx context.Context) error {
	w.closeMu.Lock()
	if w.closed {
		w.closeMu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.closeMu.Unlock()

	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
