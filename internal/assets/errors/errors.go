package errors

import "errors"

var (
	ErrNotFound = errors.New("asset not found")

	ErrInvalidID = errors.New("invalid asset ID format")

	ErrCodeAlreadySet = errors.New("asset code already assigned")
)
