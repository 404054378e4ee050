package status

import (
	"errors"
	"fmt"
)

type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

// ErrShutdown is returned by the server loop once a requested shutdown is complete.
var ErrShutdown = errors.New("graceful shutdown")

var (
	ErrMalformedRequest    = NewError(BadRequest, "malformed request")
	ErrNotFound            = NewError(NotFound, "not found")
	ErrInternalServerError = NewError(InternalServerError, "internal server error")
)

// Every parsing failure wraps ErrMalformedRequest, so errors.Is(err, ErrMalformedRequest)
// is enough to tell a bad request from an I/O failure.
var (
	ErrEmptyRequest      = malformed("no content in request")
	ErrBadRequestLine    = malformed("request line formatted unexpectedly")
	ErrUnsupportedMethod = malformed("request method is not supported")
	ErrTooLongLine       = malformed("line is too long")
	ErrTooManyHeaders    = malformed("too many headers")
	ErrBadContentLength  = malformed("bad Content-Length value")
	ErrBodyTooLarge      = malformed("request body is too large")
	ErrTruncatedBody     = malformed("request body is shorter than Content-Length")
)

func malformed(message string) error {
	return fmt.Errorf("%w: %s", ErrMalformedRequest, message)
}

// CodeOf extracts the status code carried by err. Errors that aren't HTTPError (or
// don't wrap one) are considered internal.
func CodeOf(err error) Code {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}

	return InternalServerError
}
