// internal/refactor/errors.go
package refactor

import (
	"fmt"

	"refactorizor/internal/change"
)

// BatchError identifies the change that aborted a batch
type BatchError struct {
	// Index is zero-based; messages report it one-based
	Index  int
	Change change.Change
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("change %d (%q) on %s: %v", e.Index+1, e.Change.Description, e.Change.TargetFile, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
