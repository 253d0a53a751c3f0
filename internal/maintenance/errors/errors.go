package errors

import "errors"

var (
	ErrNotFound = errors.New("maintenance task not found")

	ErrInvalidID = errors.New("invalid maintenance task ID format")

	ErrAlreadyCompleted = errors.New("maintenance task already completed")
)
