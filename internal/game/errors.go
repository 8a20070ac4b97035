package game

import (
	"errors"
	"fmt"
)

// Kind classifies failures so transports can map them consistently.
type Kind string

const (
	KindInvalid      Kind = "invalid"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on kind and message so sentinel errors compare by value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func invalidf(format string, args ...any) error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func internal(message string, cause error) error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

var (
	ErrGameNotFound   = &Error{Kind: KindNotFound, Message: "game not found"}
	ErrPlayerNotFound = &Error{Kind: KindNotFound, Message: "player not found"}
	ErrNotAPlayer     = &Error{Kind: KindUnauthorized, Message: "not a player in this game"}
	ErrAdminOnly      = &Error{Kind: KindForbidden, Message: "admin only"}
	ErrCodeTaken      = &Error{Kind: KindInvalid, Message: "room code already in use"}
	ErrNicknameTaken  = &Error{Kind: KindInvalid, Message: "nickname already taken"}
)

// KindOf reports the kind of err. Errors outside this package are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the caller-safe text of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal error"
}
