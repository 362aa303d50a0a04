// Package common provides small shared helpers for error construction and
// combination.
package common

import (
	"errors"
	"fmt"
)

// NewErrorf creates a new error from a format string and arguments.
func NewErrorf(format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)
	return errors.New(msg)
}

// NewError creates a new error by concatenating the given values.
func NewError(a ...any) error {
	msg := fmt.Sprintln(a...)
	return errors.New(msg)
}

// Combine merges multiple errors into one, skipping nils.
func Combine(errs ...error) error {
	var errmsg string
	for _, err := range errs {
		if err != nil {
			errmsg += err.Error() + ", "
		}
	}
	if errmsg != "" {
		return errors.New(errmsg[:len(errmsg)-2])
	}
	return nil
}
