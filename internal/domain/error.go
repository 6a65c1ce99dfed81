package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrForbidden          = errors.New("forbidden")

	// Copy pipeline
	ErrCategoryNotFound   = errors.New("course category not found")
	ErrShortNameTaken     = errors.New("course short name already in use")
	ErrInvalidTransition  = errors.New("invalid job status transition")
	ErrUnexpectedJobState = errors.New("job found in unexpected state")
	ErrJobPairMismatch    = errors.New("export and import jobs are not paired")
	ErrArchiveInvalid     = errors.New("copy archive is invalid")
	ErrPoolClosed         = errors.New("worker pool stopped")
	ErrLockNotAcquired    = errors.New("copy lock held by another worker")
	ErrNoDeliveryAddress  = errors.New("recipient has no delivery address")
)
