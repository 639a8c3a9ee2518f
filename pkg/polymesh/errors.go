package polymesh

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSoup is returned when the triangle index list is malformed.
	ErrInvalidSoup = errors.New("invalid triangle soup")

	// ErrInconsistent marks a broken adjacency graph. It is never a
	// data-dependent condition: output produced after it must be discarded.
	ErrInconsistent = errors.New("inconsistent mesh adjacency")
)

// ConsistencyError describes an adjacency invariant violation found while
// merging or compacting. It matches ErrInconsistent with errors.Is.
type ConsistencyError struct {
	Edge   int
	Face   int
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%v: edge %d, face %d: %s", ErrInconsistent, e.Edge, e.Face, e.Reason)
}

// Is reports whether target is ErrInconsistent.
func (e *ConsistencyError) Is(target error) bool {
	return target == ErrInconsistent
}

func inconsistent(edge, face int, format string, args ...any) error {
	return &ConsistencyError{Edge: edge, Face: face, Reason: fmt.Sprintf(format, args...)}
}
