package audit

import (
	"context"
	"errors"
	"sync"
)

// Fanout writes every batch to all of its writers concurrently and joins
// their errors. A failing secondary does not stop the others.
type Fanout[T any] struct {
	writers []BatchWriter[T]
}

func NewFanout[T any](writers ...BatchWriter[T]) (*Fanout[T], error) {
	clean := make([]BatchWriter[T], 0, len(writers))
	for _, w := range writers {
		if w != nil {
			clean = append(clean, w)
		}
	}
	if len(clean) == 0 {
		return nil, ErrNoWriters
	}
	return &Fanout[T]{writers: clean}, nil
}

func (f *Fanout[T]) StoreBatch(ctx context.Context, records []T) error {
	if len(f.writers) == 1 {
		return f.writers[0].StoreBatch(ctx, records)
	}

	errs := make([]error, len(f.writers))
	var wg sync.WaitGroup
	for i, w := range f.writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = w.StoreBatch(ctx, records)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
