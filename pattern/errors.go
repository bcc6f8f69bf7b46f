package pattern

import (
	"errors"
	"fmt"
)

// PreconditionError is returned by a query whose arguments, or whose pattern
// construction arguments, violate a combinator precondition. The pattern itself
// stays usable: a later query with valid arguments succeeds.
type PreconditionError struct {
	Op  string
	Msg string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// IsPrecondition reports whether err is (or wraps) a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

func precondition(op, format string, args ...any) *PreconditionError {
	return &PreconditionError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
