package resolve

import (
	"errors"
	"fmt"

	"execroot/pkg/reactor"
)

var (
	ErrNotFound     = errors.New("project not found")
	ErrEmptyResult  = errors.New("no base directories")
	ErrNoCommonRoot = errors.New("no common root")
)

// ValidationError reports a malformed project reference
type ValidationError = reactor.ValidationError

// NotFoundError is returned when no reactor project matches a reference
type NotFoundError struct {
	Ref reactor.Ref
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cannot find directory for project: %s", e.Ref)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// EmptyResultError is returned when no project in the reactor has a base directory
type EmptyResultError struct{}

func (e *EmptyResultError) Error() string {
	return "no project base directories found; is this a valid Maven project?"
}

func (e *EmptyResultError) Unwrap() error { return ErrEmptyResult }

// NoCommonRootError is returned when the candidate directories do not share a root.
// First is the highest candidate, Second the path that is not under it.
type NoCommonRootError struct {
	First  string
	Second string
}

func (e *NoCommonRootError) Error() string {
	return fmt.Sprintf("cannot find a single highest directory for this project set: %s and %s don't share a common root", e.First, e.Second)
}

func (e *NoCommonRootError) Unwrap() error { return ErrNoCommonRoot }
