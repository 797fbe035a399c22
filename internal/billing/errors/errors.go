package errors

import "errors"

var (
	ErrNotFound = errors.New("invoice not found")

	ErrNotPending = errors.New("invoice is not pending")
)
