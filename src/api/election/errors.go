package election

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound reports a read for an id with no matching election.
var ErrNotFound = errors.New("election not found")

// ValidationError is returned before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Constraint categories
const (
	ConstraintDuplicate  = "duplicate"
	ConstraintForeignKey = "foreign_key"
	ConstraintOther      = "other"
)

// ConstraintError wraps a data-store rejection during the mandatory
// phase. The whole transaction has been rolled back by the time the
// caller sees it.
type ConstraintError struct {
	Category string
	Err      error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint violation (%s): %v", e.Category, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

func classifyConstraint(err error) *ConstraintError {
	msg := strings.ToLower(err.Error())
	category := ConstraintOther
	switch {
	case strings.Contains(msg, "duplicate entry"), strings.Contains(msg, "unique constraint"):
		category = ConstraintDuplicate
	case strings.Contains(msg, "foreign key"):
		category = ConstraintForeignKey
	}
	return &ConstraintError{Category: category, Err: err}
}
