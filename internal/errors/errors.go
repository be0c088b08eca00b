// Package errors defines the structured error type used at the CLI
// boundary, pairing machine-readable codes with actionable suggestions.
package errors

import (
	"errors"
	"fmt"
)

// Category groups error codes by subsystem.
type Category string

const (
	CategoryConfig Category = "config"
	CategoryVault  Category = "vault"
	CategoryIndex  Category = "index"
	CategoryEmbed  Category = "embed"
	CategoryQuery  Category = "query"
)

// Error codes. The numeric band encodes the category.
const (
	CodeConfigInvalid   = "ERR_101_CONFIG_INVALID"
	CodeVaultNotFound   = "ERR_201_VAULT_NOT_FOUND"
	CodeVaultUnreadable = "ERR_202_VAULT_UNREADABLE"
	CodeIndexLocked     = "ERR_301_INDEX_LOCKED"
	CodeSnapshotCorrupt = "ERR_302_SNAPSHOT_CORRUPT"
	CodeEmbedFailed     = "ERR_401_EMBED_FAILED"
	CodeQueryFailed     = "ERR_501_QUERY_FAILED"
)

// Error is the structured error carried to the CLI boundary.
type Error struct {
	Code       string
	Message    string
	Category   Category
	Cause      error
	Retryable  bool
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is against sentinel values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithSuggestion attaches an actionable hint for the user.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// New creates a structured error. Category and retryability derive
// from the code's numeric band.
func New(code, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Cause:     cause,
		Retryable: retryableCode(code),
	}
}

func categoryFromCode(code string) Category {
	switch {
	case len(code) > 5 && code[4] == '1':
		return CategoryConfig
	case len(code) > 5 && code[4] == '2':
		return CategoryVault
	case len(code) > 5 && code[4] == '3':
		return CategoryIndex
	case len(code) > 5 && code[4] == '4':
		return CategoryEmbed
	default:
		return CategoryQuery
	}
}

func retryableCode(code string) bool {
	switch code {
	case CodeEmbedFailed, CodeVaultUnreadable:
		return true
	default:
		return false
	}
}

// UserMessage renders err for terminal display, including the
// suggestion when the error carries one. Non-structured errors pass
// through unchanged.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	msg := fmt.Sprintf("%s: %s", e.Category, e.Message)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (%v)", e.Cause)
	}
	if e.Suggestion != "" {
		msg += "\n  hint: " + e.Suggestion
	}
	return msg
}
