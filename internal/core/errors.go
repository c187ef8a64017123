package core

import "errors"

// Sentinel errors. Callers test for them with errors.Is; wrapped errors keep
// the sentinel reachable.
var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	ErrEventNotFound = errors.New("event not found")
	ErrEventExists   = errors.New("event already exists")
	ErrItemNotFound  = errors.New("item not found")

	// ErrFetch wraps every failure to download a spreadsheet.
	ErrFetch                 = errors.New("spreadsheet fetch failed")
	ErrInvalidSpreadsheetURL = errors.New("invalid spreadsheet url")
	ErrNoSpreadsheetURL      = errors.New("event has no spreadsheet url")
	ErrTooManyFetches        = errors.New("too many concurrent spreadsheet fetches")

	ErrNoPendingSync = errors.New("no pending sync for event")
	ErrStalePreview  = errors.New("sync preview is no longer current")

	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidEncoding = errors.New("file is neither utf-8 nor shift_jis text")
	ErrNoFile          = errors.New("no file provided")
	ErrEmptyFile       = errors.New("empty file")
	ErrPersist         = errors.New("failed to persist state")
)
