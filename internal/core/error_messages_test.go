package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "wrapped event not found",
			err:         fmt.Errorf("get event %q: %w", "C105", ErrEventNotFound),
			wantCode:    "EVT001",
			wantMessage: "The event does not exist",
		},
		{
			name:        "rename onto existing name",
			err:         fmt.Errorf("rename: %w", ErrEventExists),
			wantCode:    "EVT002",
			wantMessage: "An event with this name already exists",
		},
		{
			name:        "validation error by field",
			err:         NewValidationError("name", "", "event name is required"),
			wantCode:    "VAL001",
			wantMessage: "The event name is invalid",
		},
		{
			name:        "joined validation errors use the first",
			err:         errors.Join(NewValidationError("purchaseStatus", "x", "bad"), NewValidationError("price", "-1", "bad")),
			wantCode:    "VAL003",
			wantMessage: "The purchase status is not recognised",
		},
		{
			name:        "unknown validation field",
			err:         NewValidationError("remarks", "", "bad"),
			wantCode:    "VAL006",
			wantMessage: "Some fields are invalid",
		},
		{
			name:        "fetch limit beats generic fetch",
			err:         fmt.Errorf("%w: %w", ErrFetch, ErrTooManyFetches),
			wantCode:    "SYN003",
			wantMessage: "Too many spreadsheet downloads are in progress",
		},
		{
			name:        "generic fetch failure",
			err:         fmt.Errorf("%w: status 404", ErrFetch),
			wantCode:    "SYN004",
			wantMessage: "The spreadsheet could not be downloaded",
		},
		{
			name:        "stale preview",
			err:         ErrStalePreview,
			wantCode:    "SYN006",
			wantMessage: "A newer sync preview replaced this one",
		},
		{
			name:        "file too large",
			err:         fmt.Errorf("read csv: %w", ErrFileTooLarge),
			wantCode:    "FILE001",
			wantMessage: "The file is too large",
		},
		{
			name:        "file in an unknown encoding",
			err:         fmt.Errorf("import %q: read csv: %w", "C105", ErrInvalidEncoding),
			wantCode:    "FILE002",
			wantMessage: "The file is not UTF-8 or Shift_JIS text",
		},
		{
			name:        "empty upload",
			err:         fmt.Errorf("import %q: %w", "C105", ErrEmptyFile),
			wantCode:    "FILE004",
			wantMessage: "The file is empty",
		},
		{
			name:        "connection refused maps by pattern",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "STO002",
			wantMessage: "Storage is unreachable",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("Context Deadline Exceeded"),
			wantCode:    "REQ002",
			wantMessage: "The request timed out",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrNoPendingSync)

	expected := "There is no sync waiting for confirmation (Code: SYN005). Start the sync again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "sentinel is user facing",
			err:  fmt.Errorf("save: %w", ErrPersist),
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("import: %w", NewValidationError("circles", "", "no data to import"))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("errors.Is(%v, ErrValidation) = false, want true", err)
	}
}
