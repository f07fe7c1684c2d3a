// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalid indicates the operation violates a structural precondition.
	ErrInvalid = errors.New("invalid")

	// ErrUnauthorized indicates the acting user lacks permission.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrIO indicates a persistence or storage failure.
	ErrIO = errors.New("io failure")
)

// IO wraps err so it matches ErrIO while keeping the underlying message.
func IO(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}
