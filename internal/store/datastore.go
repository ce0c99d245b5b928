package store

// Session is the persistence side of an InsertBuffer. AddAll stages a
// batch of records for writing and Commit durably applies everything
// staged since the last Commit.
type Session[T any] interface {
	AddAll(records []T) error
	Commit() error
}

// Compile-time checks: the table sessions satisfy Session.
var (
	_ Session[Data]           = (*TableSession[Data])(nil)
	_ Session[DataAnnotation] = (*TableSession[DataAnnotation])(nil)
)
