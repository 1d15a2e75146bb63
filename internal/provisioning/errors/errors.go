// Package errors defines the failure taxonomy shared by the provisioning
// layers. Every error leaving the service can be classified with KindOf.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrDuplicate    = fmt.Errorf("duplicate key")
	ErrUnavailable  = fmt.Errorf("persistence unavailable")
	ErrTimeout      = fmt.Errorf("transaction timed out")
)

// Kind is the classification tag reported to callers.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConnection Kind = "connection"
	KindTimeout    Kind = "timeout"
	KindNotFound   Kind = "not_found"
	KindGeneric    Kind = "generic"
)

// FieldError attaches the offending request field to a validation failure.
type FieldError struct {
	Field string
	Msg   string
	Err   error
}

func (f *FieldError) Error() string {
	if f.Msg == "" {
		return fmt.Sprintf("%s: %v", f.Field, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Field, f.Msg)
}

func (f *FieldError) Unwrap() error {
	return f.Err
}

// Invalid reports a request field that failed validation.
func Invalid(field, msg string) error {
	return &FieldError{Field: field, Msg: msg, Err: ErrInvalidInput}
}

// Duplicate reports a natural key collision on field. cause is kept for diagnostics.
func Duplicate(field string, cause error) error {
	msg := fmt.Sprintf("%s already exists", field)
	if cause != nil && !errors.Is(cause, ErrDuplicate) {
		cause = fmt.Errorf("%w: %v", ErrDuplicate, cause)
	}
	if cause == nil {
		cause = ErrDuplicate
	}
	return &FieldError{Field: field, Msg: msg, Err: cause}
}

// KindOf classifies err. Unknown errors are generic.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrDuplicate):
		return KindValidation
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrUnavailable):
		return KindConnection
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindGeneric
	}
}

// FieldOf returns the offending field of a validation error, if any.
func FieldOf(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}

// Retryable reports whether the whole provisioning call may be re-attempted.
func Retryable(err error) bool {
	k := KindOf(err)
	return k == KindConnection || k == KindTimeout
}
