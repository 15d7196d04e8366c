package auth

import "errors"

// Error is a client-facing error with an HTTP status code. Errors of this
// type pass through the service boundary unchanged; anything else is
// rewritten to a generic internal error so storage and library details
// never reach the client.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// BadRequest returns a 400 error
func BadRequest(message string) *Error {
	return &Error{StatusCode: 400, Message: message}
}

// Unauthorized returns a 401 error
func Unauthorized(message string) *Error {
	return &Error{StatusCode: 401, Message: message}
}

// NotFound returns a 404 error
func NotFound(message string) *Error {
	return &Error{StatusCode: 404, Message: message}
}

// Internal returns a 500 error; with no message it defaults to the opaque
// "Internal Server Error"
func Internal(message string) *Error {
	if message == "" {
		message = "Internal Server Error"
	}
	return &Error{StatusCode: 500, Message: message}
}

// AsError unwraps err into an *Error when it carries one
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
