package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the client core. Transport and storage errors unwrap to
// one of these so callers can branch with Is.
var (
	// ErrNetwork covers unreachable hosts and timeouts. Always recoverable.
	ErrNetwork = errors.New("network unreachable")
	// ErrAuthRejected means credentials or tokens were refused. Terminal for the session.
	ErrAuthRejected = errors.New("authentication rejected")
	// ErrServer is any non-401 HTTP failure.
	ErrServer = errors.New("server error")
	// ErrStorage is a failed secure-storage operation.
	ErrStorage = errors.New("secure storage failure")
	// ErrEmptyInput is returned by geometry helpers given no points.
	ErrEmptyInput = errors.New("empty input")

	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join collects errors, dropping nils. It returns nil when nothing failed.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
