package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists reports that a document for the requested key has been created before.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNothingToDo reports that the inputs of an operation were empty.
	ErrNothingToDo = errors.New("nothing to do")
	// ErrStorageUnavailable wraps connectivity failures of Postgres or Redis.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrCostDataMissing is returned when neither a purchase price nor a catalog price exists for a SKU.
	ErrCostDataMissing = errors.New("cost data missing")
	// ErrExternalCollaborator wraps failures reported by the invoicing provider.
	ErrExternalCollaborator = errors.New("external collaborator failure")
	// ErrDuplicateCloseAttempt is returned when a closing record already exists for the date.
	ErrDuplicateCloseAttempt = errors.New("closing record already exists")
	// ErrCloseInProgress is returned while another worker holds the close lock for a date.
	ErrCloseInProgress = errors.New("close already in progress")
	// ErrInvalidInput marks malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
)
