package reconcile

import (
	"errors"
	"fmt"
)

var ErrInvalidRunConfig = errors.New("invalid run configuration")

// PersistenceError means a verification result could not be written back.
type PersistenceError struct {
	CandidateID int64
	Err         error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting candidate %d: %v", e.CandidateID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func NewPersistenceError(candidateID int64, err error) *PersistenceError {
	return &PersistenceError{CandidateID: candidateID, Err: err}
}

// SelectionError means the candidate set could not be loaded.
type SelectionError struct {
	Err error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("selecting candidates: %v", e.Err)
}

func (e *SelectionError) Unwrap() error {
	return e.Err
}
