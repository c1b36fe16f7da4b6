package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrLockHeld = errors.New("slot lock held by another request")

	ErrMalformedRecord = errors.New("malformed booking record")

	ErrStoreHeader = errors.New("booking file header is missing required columns")
)
