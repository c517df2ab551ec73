package emit

import (
	"errors"
	"fmt"

	"github.com/tunnelvisionlabs/language-types/internal/avail"
	"github.com/tunnelvisionlabs/language-types/internal/symkey"
)

var (
	// ErrUnknownKey means a batch asked for a key the registry does not hold.
	ErrUnknownKey = errors.New("unknown symbol key")
	// ErrBatchAborted means the batch was abandoned and nothing was emitted.
	ErrBatchAborted = errors.New("generation batch aborted")
	// ErrDuplicateArtifact means two artifacts of one batch share a name.
	ErrDuplicateArtifact = errors.New("duplicate artifact name")
)

// UnknownKeyError reports the offending keys.
type UnknownKeyError struct {
	Keys []symkey.Key
}

func (e *UnknownKeyError) Error() string {
	if len(e.Keys) == 1 {
		return fmt.Sprintf("%v: %s", ErrUnknownKey, e.Keys[0])
	}
	return fmt.Sprintf("%v: %s (and %d more)", ErrUnknownKey, e.Keys[0], len(e.Keys)-1)
}

func (e *UnknownKeyError) Unwrap() error { return ErrUnknownKey }

// AbortError carries the reason a batch for Unit was discarded.
type AbortError struct {
	Unit  avail.UnitID
	Cause error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%v for %s: %v", ErrBatchAborted, e.Unit, e.Cause)
}

// Unwrap exposes both ErrBatchAborted and the cause to errors.Is.
func (e *AbortError) Unwrap() []error { return []error{ErrBatchAborted, e.Cause} }

// Abort wraps cause as an AbortError unless it already is one.
func Abort(unit avail.UnitID, cause error) error {
	var ae *AbortError
	if errors.As(cause, &ae) {
		return cause
	}
	return &AbortError{Unit: unit, Cause: cause}
}
