package registry

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy of a registry lookup.
type ErrorCategory string

const (
	// ErrorTransient covers timeouts, network failures and the service asking us to slow down.
	ErrorTransient ErrorCategory = "transient"

	// ErrorTerminalInput means the identifier is malformed or permanently rejected.
	ErrorTerminalInput ErrorCategory = "terminal_input"

	// ErrorNoData means the service answered but had nothing usable for the identifier.
	ErrorNoData ErrorCategory = "no_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorInternal indicates an unexpected internal error
	ErrorInternal ErrorCategory = "internal"
)

// Error wraps registry failures with a category and whether another attempt may help.
type Error struct {
	Category   ErrorCategory
	Key        string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("registry lookup %s [%s]: %s: %v", e.Key, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("registry lookup %s [%s]: %s", e.Key, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a categorized error. Only transient failures are retryable.
func NewError(category ErrorCategory, key, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Key:        key,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == ErrorTransient,
	}
}

func NewTransientError(key, message string, underlying error) *Error {
	return NewError(ErrorTransient, key, message, underlying)
}

func NewTerminalInputError(key, message string, underlying error) *Error {
	return NewError(ErrorTerminalInput, key, message, underlying)
}

func NewNoDataError(key string) *Error {
	return NewError(ErrorNoData, key, "registry returned no data", nil)
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error
func GetCategory(err error) ErrorCategory {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return ErrorInternal
}
