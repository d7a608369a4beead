// Package domainerr classifies domain failures so callers can react to the
// kind of error rather than to each individual sentinel.
package domainerr

import "errors"

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("state conflict")
	ErrUnavailable = errors.New("domain unavailable")
)

// Error is a named domain failure. Two Errors are equal only by identity, and
// errors.Is also matches the kind it was created with.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func Validation(code, message string) *Error {
	return &Error{Kind: ErrValidation, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: ErrNotFound, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: ErrConflict, Code: code, Message: message}
}

func Unavailable(code, message string) *Error {
	return &Error{Kind: ErrUnavailable, Code: code, Message: message}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
