package errors

import "errors"

var (
	ErrAssetNotFound = errors.New("asset not found")

	ErrRequestNotFound = errors.New("loan request not found")

	ErrLoanNotFound = errors.New("loan not found")

	ErrEventNotFound = errors.New("event not found")

	ErrInvalidID = errors.New("invalid ID format")
)
