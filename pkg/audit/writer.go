package audit

import "context"

// BatchWriter persists a batch of records. Implementations should write the
// batch atomically: either every record is stored or none is.
type BatchWriter[T any] interface {
	StoreBatch(ctx context.Context, records []T) error
}

// BatchWriterFunc adapts a function to BatchWriter.
type BatchWriterFunc[T any] func(ctx context.Context, records []T) error

func (f BatchWriterFunc[T]) StoreBatch(ctx context.Context, records []T) error {
	return f(ctx, records)
}
