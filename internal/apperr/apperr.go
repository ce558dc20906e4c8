// Package apperr classifies the failures the board core reports to its
// callers. Every error that leaves a service carries one Kind.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// RemoteFailure covers store and network errors. Unclassified errors fall here.
	RemoteFailure Kind = iota
	// AuthenticationRequired means no current user could be resolved.
	AuthenticationRequired
	// Validation means the input was rejected before any write.
	Validation
	// NotFound means a lookup (email, id) matched nothing.
	NotFound
	// Forbidden means the acting user lacks the rights for the operation.
	Forbidden
)

func (k Kind) String() string {
	switch k {
	case AuthenticationRequired:
		return "authentication_required"
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	default:
		return "remote_failure"
	}
}

// Error is a classified error with a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind: errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind-only sentinels for errors.Is checks.
var (
	ErrAuthenticationRequired = &Error{Kind: AuthenticationRequired}
	ErrValidation             = &Error{Kind: Validation}
	ErrNotFound               = &Error{Kind: NotFound}
	ErrForbidden              = &Error{Kind: Forbidden}
	ErrRemoteFailure          = &Error{Kind: RemoteFailure}
)

func Validationf(format string, args ...any) error {
	return &Error{Kind: Validation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) error {
	return &Error{Kind: Forbidden, Message: fmt.Sprintf(format, args...)}
}

// Remote wraps a store or transport error. Errors that are already
// classified pass through unchanged.
func Remote(message string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: RemoteFailure, Message: message, Err: err}
}

// KindOf reports the kind of err. Unclassified errors are RemoteFailure.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return RemoteFailure
}

// Message returns the caller-facing message of err.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return err.Error()
}
