package config

import "errors"

type (
	// ValidationError represents an invalid configuration. It is fatal:
	// unlike store or discovery failures it is never retried.
	ValidationError struct {
		Msg string
	}
)

func (e *ValidationError) Error() string {
	return e.Msg
}

// IsValidationError checks whether the error is a ValidationError.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
