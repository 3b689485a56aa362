package database

import "fmt"

// PersistenceError reports a source batch that was rolled back as a whole.
type PersistenceError struct {
	Source string
	Count  int
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %d items for source %s: %v", e.Count, e.Source, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
