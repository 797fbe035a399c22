package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	// ErrOverlap is returned by stores that reject overlapping intervals themselves.
	ErrOverlap = errors.New("reservation overlaps an existing reservation")

	ErrDuplicateID = errors.New("reservation id already exists")

	// ErrAlreadyInvoiced is returned by AttachInvoice when any of the
	// reservations already carries an invoice id.
	ErrAlreadyInvoiced = errors.New("reservation already invoiced")
)
