package store

import "context"

// DefaultBatchSize is how many rows a Batch buffers before flushing.
// Sized well under the backends' per-request row limits.
const DefaultBatchSize = 400

// FlushFunc writes one buffered chunk of rows to the backend.
type FlushFunc[T any] func(ctx context.Context, rows []T) error

// Batch buffers rows and flushes them in fixed-size chunks, so large
// imports become a handful of requests instead of one per row.
// Not safe for concurrent use.
type Batch[T any] struct {
	limit int
	rows  []T
	flush FlushFunc[T]
}

// NewBatch returns a batch flushing every limit rows. A non-positive
// limit falls back to DefaultBatchSize.
func NewBatch[T any](limit int, flush FlushFunc[T]) *Batch[T] {
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	return &Batch[T]{limit: limit, rows: make([]T, 0, limit), flush: flush}
}

// Add buffers one row, flushing first if the buffer is full.
func (b *Batch[T]) Add(ctx context.Context, row T) error {
	b.rows = append(b.rows, row)
	if len(b.rows) >= b.limit {
		return b.Flush(ctx)
	}
	return nil
}

// Flush writes any buffered rows. Safe to call with an empty buffer;
// always call once after the last Add.
func (b *Batch[T]) Flush(ctx context.Context) error {
	if len(b.rows) == 0 {
		return nil
	}
	if err := b.flush(ctx, b.rows); err != nil {
		return err
	}
	b.rows = b.rows[:0]
	return nil
}
