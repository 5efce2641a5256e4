package honor

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when the requested account, or the parent
	// of a sub-account, does not exist. Nothing is mutated.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidDate marks a task whose start date cannot be parsed. Such
	// tasks are skipped by date-based rules.
	ErrInvalidDate = errors.New("invalid date")
)

// PredicateError reports a rule that could not be computed. The honor is
// treated as not achieved and evaluation moves on.
type PredicateError struct {
	Key Key
	Err error
}

func (e *PredicateError) Error() string {
	return fmt.Sprintf("honor %s: %v", e.Key, e.Err)
}

func (e *PredicateError) Unwrap() error {
	return e.Err
}
