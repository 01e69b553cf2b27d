package errors

import (
	"errors"
	"fmt"
)

func New(text string) error {
	return errors.New(text)
}

// Wrap prefixes reason with the classification so both still match errors.Is.
func Wrap(classify, reason error) error {
	return fmt.Errorf("%w | %w", classify, reason)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
