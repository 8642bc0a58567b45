// internal/apperr/apperr.go

// Package apperr defines the error taxonomy shared by all loon commands.
// Every error that reaches main carries a Kind and an exit code; nothing
// is retried, errors are reported once and the process terminates.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	ConfigError Kind = iota
	NotFoundError
	ConnectionError
	RemoteCommandError
	TransferError
	MissingFileError
)

func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "config error"
	case NotFoundError:
		return "not found"
	case ConnectionError:
		return "connection error"
	case RemoteCommandError:
		return "remote command error"
	case TransferError:
		return "transfer error"
	case MissingFileError:
		return "missing file"
	}
	return "error"
}

// E is the concrete error type used across the application. Code is the
// process exit status to report; zero means "use the default of 1".
type E struct {
	Kind    Kind
	Message string
	Err     error
	Code    int
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *E) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string, err error) *E {
	return &E{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func Newf(kind Kind, format string, args ...interface{}) *E {
	return &E{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithCode attaches an explicit process exit status, used to mirror the
// exit code of an external tool (scp, rsync, qsub).
func (e *E) WithCode(code int) *E {
	e.Code = code
	return e
}

// Is reports whether err (or anything it wraps) is an *E of the given kind.
func Is(err error, kind Kind) bool {
	var e *E
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// ExitCode maps an error to the status the process should exit with.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *E
	if errors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return 1
}
