package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references an id that does not
// resolve to a node of the expected kind. Expected failures are reported
// through this type rather than panics so callers can treat them as no-ops.
type ErrNotFound struct {
	Kind NodeKind
	ID   string
}

func (e ErrNotFound) Error() string {
	kind := string(e.Kind)
	if kind == "" {
		kind = "node"
	}
	return fmt.Sprintf("%s %s not found", kind, e.ID)
}

// ErrKindMismatch is returned when an id resolves to a node of the wrong kind.
type ErrKindMismatch struct {
	ID   string
	Want NodeKind
	Got  NodeKind
}

func (e ErrKindMismatch) Error() string {
	return fmt.Sprintf("%s is a %s, not a %s", e.ID, e.Got, e.Want)
}

// ErrRootImmutable rejects deletion or relocation of the root stack.
var ErrRootImmutable = errors.New("root stack cannot be deleted or moved")

// IsNotFound reports whether err wraps an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}
