package reactor

import (
	"errors"
	"fmt"
)

// ErrInvalidReference is the kind of every ValidationError
var ErrInvalidReference = errors.New("invalid project reference")

// ValidationError reports a malformed project reference
type ValidationError struct {
	Ref    Ref
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %q: %s", ErrInvalidReference.Error(), e.Ref.String(), e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidReference }
