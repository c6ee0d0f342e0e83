package domain

import "fmt"

type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindAlreadyExists
	KindValidationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindValidationFailed:
		return "validation_failed"
	default:
		return "unknown"
	}
}

// Error is a named domain failure. The HTTP edge decides the status code from
// Kind; Message is safe to show to clients.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrAlreadyExists    = &Error{Kind: KindAlreadyExists}
	ErrValidationFailed = &Error{Kind: KindValidationFailed}
)

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}

	return e.Message
}

// Is matches any domain error of the same kind, so the package sentinels work
// with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

func NewNotFoundError(id int64) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("Resource not found with id: %d", id),
	}
}

func NewAlreadyExistsError(message string) *Error {
	return &Error{Kind: KindAlreadyExists, Message: message}
}

func NewValidationError(message string, fields map[string]string) *Error {
	return &Error{
		Kind:    KindValidationFailed,
		Message: message,
		Fields:  fields,
	}
}
