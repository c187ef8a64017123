// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Sentinel errors are matched first with errors.Is; anything else
// falls through to a case-insensitive pattern table.
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid event name
//	VAL002 - Nothing to import
//	VAL003 - Unknown purchase status
//	VAL004 - Unknown column
//	VAL005 - Invalid price
//	VAL006 - Any other invalid field
//	VAL007 - Day not in the event
//
// # Event Errors (EVT001-EVT099)
//
//	EVT001 - Event not found
//	EVT002 - Event name already taken
//	EVT003 - Item not found
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Neither UTF-8 nor Shift_JIS
//	FILE003 - No file
//	FILE004 - Empty file
//
// # Sync Errors (SYN001-SYN099)
//
//	SYN001 - Spreadsheet URL not recognised
//	SYN002 - Event has no saved spreadsheet URL
//	SYN003 - Too many spreadsheet downloads in flight
//	SYN004 - Spreadsheet download failed
//	SYN005 - No sync waiting for confirmation
//	SYN006 - Sync preview superseded
//
// # Storage Errors (STO001-STO099)
//
//	STO001 - Changes could not be saved
//	STO002 - Storage unreachable
//
// # Request Errors
//
//	RATE001 - Too many requests
//	REQ001  - Request cancelled
//	REQ002  - Request timed out
//	ERR000  - Fallback for anything unrecognised

package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages is checked in order, so wrapped errors that match more
// than one sentinel resolve to the most specific.
var sentinelMessages = []sentinelMessage{
	{ErrFileTooLarge, UserMessage{
		Message: "The file is too large",
		Action:  "Split the list into smaller files",
		Code:    "FILE001",
	}},
	{ErrInvalidEncoding, UserMessage{
		Message: "The file is not UTF-8 or Shift_JIS text",
		Action:  "Save the file as UTF-8 CSV",
		Code:    "FILE002",
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to import",
		Code:    "FILE003",
	}},
	{ErrEmptyFile, UserMessage{
		Message: "The file is empty",
		Action:  "Please import a CSV file with data rows",
		Code:    "FILE004",
	}},
	{ErrEventNotFound, UserMessage{
		Message: "The event does not exist",
		Action:  "Check the event name or import the event first",
		Code:    "EVT001",
	}},
	{ErrEventExists, UserMessage{
		Message: "An event with this name already exists",
		Action:  "Choose a different name",
		Code:    "EVT002",
	}},
	{ErrItemNotFound, UserMessage{
		Message: "The item does not exist",
		Action:  "Reload the event and try again",
		Code:    "EVT003",
	}},
	{ErrInvalidSpreadsheetURL, UserMessage{
		Message: "The spreadsheet URL is not recognised",
		Action:  "Paste the full docs.google.com/spreadsheets URL",
		Code:    "SYN001",
	}},
	{ErrNoSpreadsheetURL, UserMessage{
		Message: "This event has no spreadsheet URL",
		Action:  "Enter the spreadsheet URL to sync from",
		Code:    "SYN002",
	}},
	{ErrTooManyFetches, UserMessage{
		Message: "Too many spreadsheet downloads are in progress",
		Action:  "Please wait a moment and try again",
		Code:    "SYN003",
	}},
	{ErrFetch, UserMessage{
		Message: "The spreadsheet could not be downloaded",
		Action:  "Check that the sheet is shared publicly and the sheet name is correct",
		Code:    "SYN004",
	}},
	{ErrNoPendingSync, UserMessage{
		Message: "There is no sync waiting for confirmation",
		Action:  "Start the sync again",
		Code:    "SYN005",
	}},
	{ErrStalePreview, UserMessage{
		Message: "A newer sync preview replaced this one",
		Action:  "Review the latest preview before confirming",
		Code:    "SYN006",
	}},
	{ErrPersist, UserMessage{
		Message: "Changes could not be saved",
		Action:  "Your changes are kept in memory and will be retried",
		Code:    "STO001",
	}},
}

var validationMessages = map[string]UserMessage{
	"name": {
		Message: "The event name is invalid",
		Action:  "Use a non-empty name without slashes",
		Code:    "VAL001",
	},
	"circles": {
		Message: "There is nothing to import",
		Action:  "Provide at least one row with circle, date, block and number",
		Code:    "VAL002",
	},
	"purchaseStatus": {
		Message: "The purchase status is not recognised",
		Action:  "Use one of None, Purchased, SoldOut, Absent, Postpone, Late",
		Code:    "VAL003",
	},
	"column": {
		Message: "The column is not recognised",
		Action:  "Use execute or candidate",
		Code:    "VAL004",
	},
	"price": {
		Message: "The price is invalid",
		Action:  "Enter a whole number of yen, or leave it empty",
		Code:    "VAL005",
	},
	"date": {
		Message: "The event has no items on that day",
		Action:  "Pick one of the event's days",
		Code:    "VAL007",
	},
}

var genericValidationMessage = UserMessage{
	Message: "Some fields are invalid",
	Action:  "Check the highlighted fields and try again",
	Code:    "VAL006",
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user
// messages for errors that carry no sentinel, typically from drivers and
// the network. The first matching pattern wins.
var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Storage is unreachable",
			Action:  "Please try again in a few moments",
			Code:    "STO002",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Storage is unreachable",
			Action:  "Please try again in a few moments",
			Code:    "STO002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the logs for the technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(fmt.Errorf("rename: %w", ErrEventExists))
//	// msg.Code == "EVT002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		if msg, ok := validationMessages[ve.Field]; ok {
			return msg
		}
		return genericValidationMessage
	}
	if errors.Is(err, ErrValidation) {
		return genericValidationMessage
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
