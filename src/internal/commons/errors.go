package commons

import "errors"

// Storage-level conditions surfaced by every ledger store implementation.
var (
	ErrRecordNotFound      = errors.New("Record not found")
	ErrDuplicateRecord     = errors.New("Duplicate record")
	ErrInsufficientBalance = errors.New("Insufficient balance")
)
