package store

// DefaultBufferSize is the number of records an InsertBuffer holds before
// it flushes on its own.
const DefaultBufferSize = 1000

// InsertBuffer collects records of a single type in submission order and
// writes them to a Session in batches. Each flush stages the whole buffer
// with one AddAll call and ends the transaction with Commit.
//
// An InsertBuffer is not safe for concurrent use.
type InsertBuffer[T any] struct {
	session   Session[T]
	autoFlush bool
	size      int

	records []T
}

// BufferOption configures an InsertBuffer.
type BufferOption func(*bufferConfig)

type bufferConfig struct {
	autoFlush bool
	size      int
}

// WithAutoFlush controls whether Queue flushes once the buffer reaches its
// size. When disabled, records stay pending until Flush is called, so they
// can be inspected with Pending before they are written.
func WithAutoFlush(enabled bool) BufferOption {
	return func(c *bufferConfig) {
		c.autoFlush = enabled
	}
}

// WithBufferSize sets the flush threshold. Values below 1 are ignored.
func WithBufferSize(n int) BufferOption {
	return func(c *bufferConfig) {
		if n > 0 {
			c.size = n
		}
	}
}

// NewInsertBuffer creates an empty buffer writing to session.
func NewInsertBuffer[T any](session Session[T], opts ...BufferOption) *InsertBuffer[T] {
	cfg := bufferConfig{autoFlush: true, size: DefaultBufferSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &InsertBuffer[T]{
		session:   session,
		autoFlush: cfg.autoFlush,
		size:      cfg.size,
	}
}

// Queue appends a record. With auto-flush enabled, reaching the buffer
// size triggers a flush whose error is returned.
func (b *InsertBuffer[T]) Queue(record T) error {
	b.records = append(b.records, record)
	if b.autoFlush && len(b.records) >= b.size {
		return b.Flush()
	}
	return nil
}

// Flush writes all pending records as one batch and clears the buffer.
// It is a no-op when nothing is pending. Errors from the session are
// returned as is and leave the pending records in place.
func (b *InsertBuffer[T]) Flush() error {
	if len(b.records) == 0 {
		return nil
	}
	if err := b.session.AddAll(b.records); err != nil {
		return err
	}
	if err := b.session.Commit(); err != nil {
		return err
	}
	b.records = nil
	return nil
}

// Len returns the number of pending records.
func (b *InsertBuffer[T]) Len() int {
	return len(b.records)
}

// Pending returns the records not yet flushed. The slice is owned by the
// buffer and must not be modified.
func (b *InsertBuffer[T]) Pending() []T {
	return b.records
}

// WithInsertBuffer runs fn with a fresh buffer and flushes whatever is
// still pending once fn returns nil. If fn returns an error (or panics)
// the pending records are dropped and the error is returned unchanged.
func WithInsertBuffer[T any](session Session[T], fn func(*InsertBuffer[T]) error, opts ...BufferOption) error {
	b := NewInsertBuffer(session, opts...)
	if err := fn(b); err != nil {
		return err
	}
	return b.Flush()
}
