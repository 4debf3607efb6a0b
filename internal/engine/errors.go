package engine

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by SubmitCopyCast matches exactly one of
// them with errors.Is.
var (
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrTypeDispatch     = errors.New("unsupported type pair")
	ErrInvalidBroadcast = errors.New("invalid broadcast")
	ErrDeviceSubmission = errors.New("device submission failed")
)

// CopyError describes a rejected copy.
type CopyError struct {
	Kind   error  // one of the Err* kinds
	Op     string // operation, e.g. "copy_cast"
	Detail string // what was wrong
	Err    error  // underlying cause, may be nil
}

// Error implements the error interface.
func (e *CopyError) Error() string {
	msg := fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Detail)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *CopyError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, cause error, format string, args ...any) *CopyError {
	return &CopyError{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...), Err: cause}
}
