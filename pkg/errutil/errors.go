package errutil

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindExchange      Kind = "exchange"
	KindRefresh       Kind = "refresh"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindNotConnected  Kind = "not_connected"
	KindUpstream      Kind = "upstream"
)

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

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Configuration(message string) *Error { return New(KindConfiguration, message) }
func Exchange(message string) *Error      { return New(KindExchange, message) }
func Refresh(message string) *Error       { return New(KindRefresh, message) }
func Validation(message string) *Error    { return New(KindValidation, message) }
func NotFound(message string) *Error      { return New(KindNotFound, message) }
func NotConnected(message string) *Error  { return New(KindNotConnected, message) }
func Upstream(message string) *Error      { return New(KindUpstream, message) }

// KindOf reports the Kind carried by err, or KindUpstream for plain errors
// so callers always get a classifiable value.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
