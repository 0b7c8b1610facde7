package diff

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a failed or interrupted run.
type ErrorKind int

const (
	// ConfigurationError: models missing or unsealed, bad filter or version.
	ConfigurationError ErrorKind = iota + 1
	// DependencyResolutionError: a dependency cannot be satisfied by the
	// session's objects.
	DependencyResolutionError
	// Cancelled: the run was stopped on request.
	Cancelled
	// EmissionError: an operation cannot be rendered to valid DDL.
	EmissionError
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigurationError:
		return "configuration error"
	case DependencyResolutionError:
		return "dependency resolution error"
	case Cancelled:
		return "cancelled"
	case EmissionError:
		return "emission error"
	}
	return "unknown error"
}

// Sentinels for errors.Is.
var (
	ErrConfiguration        = &Error{Kind: ConfigurationError}
	ErrDependencyResolution = &Error{Kind: DependencyResolutionError}
	ErrCancelled            = &Error{Kind: Cancelled}
	ErrEmission             = &Error{Kind: EmissionError}
)

// Error is the structured error returned by the engine.
type Error struct {
	Kind      ErrorKind
	Signature string
	Cause     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Signature != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Signature)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind ErrorKind, signature string, format string, args ...any) *Error {
	return &Error{Kind: kind, Signature: signature, Cause: errors.Errorf(format, args...)}
}

func wrapError(kind ErrorKind, signature string, err error) *Error {
	return &Error{Kind: kind, Signature: signature, Cause: err}
}

// KindOf returns the kind of a diff error, or 0 when err is not one.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
