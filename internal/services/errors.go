package services

import "errors"

// Error kinds surfaced to callers. Handlers map these onto HTTP
// statuses; the operations themselves guarantee that no mutation has
// occurred when one of them is returned.
var (
	// ErrUnauthenticated means no caller identity was present.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrPermissionDenied means the caller identity lacks the role
	// or relationship the operation requires.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidArgument means the input was malformed or
	// semantically wrong for the target record.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict means the record already exists.
	ErrConflict = errors.New("conflict")
)
