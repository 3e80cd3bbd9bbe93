// internal/change/errors.go
package change

import "errors"

var (
	// ErrMissingTarget means the target file did not exist when the change was applied
	ErrMissingTarget = errors.New("target file not found")
	// ErrOutsideRoot means the target file resolves outside the project root
	ErrOutsideRoot = errors.New("target file is outside the project root")
	// ErrUnknownOperation means the change type is outside the recognized set
	ErrUnknownOperation = errors.New("unknown change type")
	// ErrPatternNotFound means a replace left the file byte-identical
	ErrPatternNotFound = errors.New("search pattern not found")
)
