package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks user input that was rejected before any state change.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an update or delete aimed at an entry that does not exist.
	ErrNotFound = errors.New("entry not found")
	// ErrStorage marks a failure of the backing store. Match it with errors.Is.
	ErrStorage = errors.New("storage unavailable")
)

// StorageError wraps a backend failure with the store operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError wraps err unless it is nil or already a not-found error.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// NotFound builds the error returned for a missing entry id.
func NotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
