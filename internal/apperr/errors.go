// Package apperr defines the error kinds that cross the core boundary.
// Adapters translate a Kind into a transport response; callers should use
// KindOf or Is rather than comparing messages.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Unknown Kind = iota
	Validation
	Infrastructure
	MessageFormat
	FatalStartup
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Infrastructure:
		return "infrastructure"
	case MessageFormat:
		return "message_format"
	case FatalStartup:
		return "fatal_startup"
	default:
		return "unknown"
	}
}

// Error carries a Kind together with the operation that failed and,
// optionally, the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrInvalidCredentials is returned for every credential failure during
// login, whether the account is unknown or the secret does not match.
var ErrInvalidCredentials error = &Error{Kind: Validation, Msg: "invalid credentials"}

func NewValidation(msg string) error {
	return &Error{Kind: Validation, Msg: msg}
}

func NewInfrastructure(op string, err error) error {
	return &Error{Kind: Infrastructure, Op: op, Err: err}
}

func NewMessageFormat(msg string, err error) error {
	return &Error{Kind: MessageFormat, Msg: msg, Err: err}
}

func NewFatalStartup(op string, err error) error {
	return &Error{Kind: FatalStartup, Op: op, Err: err}
}

// KindOf reports the Kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Public returns the text that may be shown to a client. Only validation
// messages are passed through.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind == Validation {
		return e.Error()
	}
	return "internal error"
}
