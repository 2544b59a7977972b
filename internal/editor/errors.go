package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned for unknown or closed session IDs.
	ErrSessionNotFound = errors.New("editing session not found")

	// ErrNoStorage is returned by Save when the manager has no storage.
	ErrNoStorage = errors.New("no storage configured")
)

// OperationError reports a failed edit, undo or save. The session's history
// is unchanged when one is returned.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// UserMessage is the operation-named message shown to the user.
func (e *OperationError) UserMessage() string {
	if e.Op == "undo" {
		return "Failed to undo change. Please try again."
	}
	return fmt.Sprintf("Failed to %s image. Please try again.", e.Op)
}
