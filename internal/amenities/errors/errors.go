package errors

import "errors"

var (
	ErrNotFound = errors.New("stocked item not found")

	ErrAlreadyExists = errors.New("stocked item already exists")

	ErrInsufficientStock = errors.New("insufficient stock")

	ErrUsageNotFound = errors.New("service usage not found")

	ErrUsageAlreadyInvoiced = errors.New("service usage already invoiced")
)
