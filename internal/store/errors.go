package store

import "fmt"

// ErrStoreCorrupt is returned when persisted history exists but is not a valid record sequence.
type ErrStoreCorrupt struct {
	error
}

func NewErrStoreCorrupt(source string, err error) *ErrStoreCorrupt {
	return &ErrStoreCorrupt{fmt.Errorf("history %s is corrupt: %w", source, err)}
}

func (e *ErrStoreCorrupt) Unwrap() error {
	return e.error
}

// ErrStoreWrite is returned when a record could not be made durable.
type ErrStoreWrite struct {
	error
}

func NewErrStoreWrite(source string, err error) *ErrStoreWrite {
	return &ErrStoreWrite{fmt.Errorf("failed to persist history %s: %w", source, err)}
}

func (e *ErrStoreWrite) Unwrap() error {
	return e.error
}
