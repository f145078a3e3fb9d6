package services

import (
	"errors"
	"fmt"
)

// ErrorKind tags a service failure so callers can map it without string matching
type ErrorKind string

const (
	KindAuth          ErrorKind = "AUTH"
	KindValidation    ErrorKind = "VALIDATION"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindWindowClosed  ErrorKind = "WINDOW_CLOSED"
	KindCapacity      ErrorKind = "CAPACITY"
	KindIncomplete    ErrorKind = "INCOMPLETE"
	KindInvalidOption ErrorKind = "INVALID_OPTION"
	KindPersistence   ErrorKind = "PERSISTENCE"
)

// Error is the tagged failure returned by every rule-engine operation.
// Message is safe to show to end users.
type Error struct {
	Kind    ErrorKind
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

// Is matches another *Error of the same kind, so errors.Is(err, ErrCapacity) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Kind-only targets for errors.Is
var (
	ErrAuth          = &Error{Kind: KindAuth}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrWindowClosed  = &Error{Kind: KindWindowClosed}
	ErrCapacity      = &Error{Kind: KindCapacity}
	ErrIncomplete    = &Error{Kind: KindIncomplete}
	ErrInvalidOption = &Error{Kind: KindInvalidOption}
	ErrPersistence   = &Error{Kind: KindPersistence}
)

// KindOf returns the kind of a service error, or "" for foreign errors
func KindOf(err error) ErrorKind {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return ""
}

func authError(msg string) error {
	return &Error{Kind: KindAuth, Message: msg}
}

func validationError(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func windowClosedError(msg string) error {
	return &Error{Kind: KindWindowClosed, Message: msg}
}

func capacityError(msg string) error {
	return &Error{Kind: KindCapacity, Message: msg}
}

func incompleteError(format string, args ...interface{}) error {
	return &Error{Kind: KindIncomplete, Message: fmt.Sprintf(format, args...)}
}

func invalidOptionError(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidOption, Message: fmt.Sprintf(format, args...)}
}

// persistenceError wraps a datastore failure. A *Error that is already tagged
// passes through untouched so transaction callbacks can return rule failures.
func persistenceError(msg string, err error) error {
	var serr *Error
	if errors.As(err, &serr) {
		return err
	}
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}
