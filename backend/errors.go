package backend

import (
	"fmt"
	"strings"
)

// Error is returned by every Client call that fails. Kind is one of the
// bubblemind sentinel errors (ErrTimeout, ErrServerRejected,
// ErrBackendUnavailable) so callers can classify with errors.Is.
type Error struct {
	Op     string // "ocr", "delete", ...
	Status int    // HTTP status, 0 when no response arrived
	Msg    string // server-supplied message, if any
	Kind   error
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "backend %s: %v", e.Op, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Msg != "" {
		fmt.Fprintf(&b, ": %s", e.Msg)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}
