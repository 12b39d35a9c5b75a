package errors

import (
	stderrors "errors"

	"github.com/indigo-web/negotiator/http/status"
)

// Kind classifies a failure by the negotiation phase which raised it.
type Kind uint8

const (
	Unknown Kind = iota
	// Transport covers read, write and disconnect failures.
	Transport
	// Parse covers malformed start-lines and header blocks.
	Parse
	// Framing covers invalid body length declarations.
	Framing
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case Parse:
		return "parse"
	case Framing:
		return "framing"
	default:
		return "unknown"
	}
}

// Error is a classified negotiation failure. Code is the status a compliant
// server would have responded with. It's carried for the logs and handlers only,
// as the peer receives just the message.
type Error struct {
	Kind    Kind
	Code    status.Code
	Message string
	Err     error
}

func New(kind Kind, code status.Code, message string) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target is the same sentinel, regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == e.Message
}

// Wrap returns a copy of the sentinel carrying the cause.
func Wrap(sentinel *Error, cause error) *Error {
	wrapped := *sentinel
	wrapped.Err = cause
	return &wrapped
}

// KindOf returns the kind of the first classified error in the chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}

	return Unknown
}

var (
	ErrRead             = New(Transport, status.BadRequest, "read failed")
	ErrWrite            = New(Transport, status.InternalServerError, "write failed")
	ErrConnectionClosed = New(Transport, status.BadRequest, "connection closed by peer")

	ErrLineTooLong          = New(Parse, status.RequestURITooLong, "line is too long")
	ErrBadRequestLine       = New(Parse, status.BadRequest, "malformed request line")
	ErrMethodNotImplemented = New(Parse, status.NotImplemented, "request method is not supported")
	ErrUnsupportedProtocol  = New(Parse, status.HTTPVersionNotSupported, "protocol is not supported")
	ErrBadHeader            = New(Parse, status.BadRequest, "malformed header field")
	ErrTooManyHeaders       = New(Parse, status.RequestHeaderFieldsTooLarge, "too many headers")
	ErrHeaderFieldsTooLarge = New(Parse, status.RequestHeaderFieldsTooLarge, "too large headers section")

	ErrBadContentLength            = New(Framing, status.BadRequest, "invalid content length")
	ErrConflictingContentLength    = New(Framing, status.BadRequest, "conflicting content length values")
	ErrBodyTooLarge                = New(Framing, status.RequestEntityTooLarge, "request body is too large")
	ErrUnsupportedTransferEncoding = New(Framing, status.NotImplemented, "transfer encoding is not supported")
)
