package services

import "errors"

var (
	// ErrParsingFailed wraps malformed CSV input; nothing is written.
	ErrParsingFailed = errors.New("parsing failed")

	// ErrNoValidRecords means the file parsed but zero rows mapped to
	// transactions, usually a header mismatch.
	ErrNoValidRecords = errors.New("no valid records found in file, check the column headers")

	// ErrDuplicateKey is a natural-key uniqueness violation on a manual
	// record, distinct from a generic failure so the UI can name the key.
	ErrDuplicateKey = errors.New("identifier already in use")

	// ErrHasLinkedRecords is the referential-integrity refusal: the record
	// has linked rows and must be deactivated instead of deleted.
	ErrHasLinkedRecords = errors.New("record has linked rows; deactivate it instead of deleting")

	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrProfileConflict flags an ATM profile that would give a device two
	// active rows or overlapping installation windows.
	ErrProfileConflict = errors.New("conflicting installation profile for device")
)
