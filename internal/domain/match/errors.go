package match

import (
	"errors"
	"fmt"

	"github.com/okian/duel/internal/domain/model"
)

// Sentinel error kinds. These allow errors.Is from callers.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrSessionFull  = errors.New("session full")
	ErrInvalidState = errors.New("invalid state")
)

// StateError reports an operation attempted in the wrong status. It
// carries the current status so clients can resynchronize.
type StateError struct {
	Op     string
	Status model.Status
	Reason string
}

func (e *StateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s (status=%s)", e.Op, e.Reason, e.Status)
	}
	return fmt.Sprintf("%s: invalid state (status=%s)", e.Op, e.Status)
}

// Unwrap makes errors.Is(err, ErrInvalidState) hold.
func (e *StateError) Unwrap() error { return ErrInvalidState }

func stateErr(op string, status model.Status, reason string) error {
	return &StateError{Op: op, Status: status, Reason: reason}
}
