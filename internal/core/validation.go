package core

// validation.go checks user-supplied values before they reach the state.
//
// Validation happens at two levels:
//  1. Field validation: a single value (event name, status, column)
//  2. Item validation: an item or row as a whole
//
// Failures are ValidationErrors carrying the field name, the rejected value
// and a human-readable message. They satisfy errors.Is(err, ErrValidation).

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxEventNameLength bounds event names in characters.
const MaxEventNameLength = 100

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field name
	Value   string // The invalid value
	Message string // Human-readable error message
}

// NewValidationError builds a *ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Unwrap makes every ValidationError match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ValidateEventName trims name and checks it is usable as an event key.
func ValidateEventName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", NewValidationError("name", name, "event name is required")
	case utf8.RuneCountInString(name) > MaxEventNameLength:
		return "", NewValidationError("name", name, fmt.Sprintf("event name must be at most %d characters", MaxEventNameLength))
	case strings.ContainsAny(name, "/\\"):
		return "", NewValidationError("name", name, "event name must not contain slashes")
	}
	return name, nil
}

// ValidateStatus parses a status code or label.
func ValidateStatus(s string) (PurchaseStatus, error) {
	st, ok := ParseStatus(strings.TrimSpace(s))
	if !ok {
		return "", NewValidationError("purchaseStatus", s, "unknown purchase status")
	}
	return st, nil
}

// ValidateColumn parses a column name.
func ValidateColumn(s string) (Column, error) {
	c, ok := ParseColumn(strings.TrimSpace(s))
	if !ok {
		return "", NewValidationError("column", s, "column must be execute or candidate")
	}
	return c, nil
}

// ValidateRow checks a manually entered row. Circle or title is required,
// along with the date.
func ValidateRow(r RawRow) error {
	var errs []error
	if strings.TrimSpace(r.Circle) == "" && strings.TrimSpace(r.Title) == "" {
		errs = append(errs, NewValidationError("circle", r.Circle, "circle or title is required"))
	}
	if strings.TrimSpace(r.EventDate) == "" {
		errs = append(errs, NewValidationError("eventDate", r.EventDate, "event date is required"))
	}
	if r.Price != nil && *r.Price < 0 {
		errs = append(errs, NewValidationError("price", fmt.Sprint(*r.Price), "price must not be negative"))
	}
	return errors.Join(errs...)
}

// trimRow trims every text field of a row.
func trimRow(r RawRow) RawRow {
	r.Circle = strings.TrimSpace(r.Circle)
	r.EventDate = strings.TrimSpace(r.EventDate)
	r.Block = strings.TrimSpace(r.Block)
	r.Number = strings.TrimSpace(r.Number)
	r.Title = strings.TrimSpace(r.Title)
	r.Remarks = strings.TrimSpace(r.Remarks)
	return r
}
