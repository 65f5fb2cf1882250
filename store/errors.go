package store

import (
	"errors"
	"fmt"
)

type (
	// NotFoundError is returned by Get when the key has never been written.
	NotFoundError struct {
		Key    string
		Region string
	}
)

func (e *NotFoundError) Error() string {
	if e.Region == "" {
		return fmt.Sprintf("key not found: %v", e.Key)
	}
	return fmt.Sprintf("key not found: %v (region %v)", e.Key, e.Region)
}

// IsNotFound checks whether the error is a NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}
