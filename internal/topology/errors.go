package topology

import (
	"errors"
	"fmt"
)

// Kind classifies topology failures. Every kind is recoverable: the caller rejects the
// triggering action and the topology is left as it was.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindCapacityExceeded
	KindEmptyTopology
	KindInvalidTopology
	KindUnknownLayer
	KindImmutableLayer
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindCapacityExceeded:
		return "CapacityExceeded"
	case KindEmptyTopology:
		return "EmptyTopology"
	case KindInvalidTopology:
		return "InvalidTopology"
	case KindUnknownLayer:
		return "UnknownLayer"
	case KindImmutableLayer:
		return "ImmutableLayer"
	default:
		return "Unknown"
	}
}

// Error carries the kind, the operation that failed and a human readable detail.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Detail == "":
		return e.Kind.String()
	case e.Detail == "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Detail)
	}
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	ErrConfiguration    = &Error{Kind: KindConfiguration}
	ErrCapacityExceeded = &Error{Kind: KindCapacityExceeded}
	ErrEmptyTopology    = &Error{Kind: KindEmptyTopology}
	ErrInvalidTopology  = &Error{Kind: KindInvalidTopology}
	ErrUnknownLayer     = &Error{Kind: KindUnknownLayer}
	ErrImmutableLayer   = &Error{Kind: KindImmutableLayer}
)

// KindOf unwraps err looking for a topology error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}
