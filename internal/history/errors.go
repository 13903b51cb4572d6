package history

import "fmt"

// CorruptHistoryError reports a stored history value that could not be
// decoded. The store has already discarded it and holds an empty history.
type CorruptHistoryError struct {
	Key string
	Err error
}

func (e *CorruptHistoryError) Error() string {
	return fmt.Sprintf("decode history at %q: %v", e.Key, e.Err)
}

func (e *CorruptHistoryError) Unwrap() error { return e.Err }

// PersistenceError reports a failed read, write or remove against the
// key-value store. The in-memory history remains authoritative.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s history at %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
