package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound                ErrorKind = "NotFound"
	KindInvalidInput            ErrorKind = "InvalidInput"
	KindInvalidStateTransition  ErrorKind = "InvalidStateTransition"
	KindStorageUnavailable      ErrorKind = "StorageUnavailable"
	KindPartialDepletionWarning ErrorKind = "PartialDepletionWarning"
	KindConflict                ErrorKind = "Conflict"
)

// Sentinels for errors.Is matching against *Error values of the same kind.
var (
	ErrNotFound                = &Error{Kind: KindNotFound}
	ErrInvalidInput            = &Error{Kind: KindInvalidInput}
	ErrInvalidStateTransition  = &Error{Kind: KindInvalidStateTransition}
	ErrStorageUnavailable      = &Error{Kind: KindStorageUnavailable}
	ErrPartialDepletionWarning = &Error{Kind: KindPartialDepletionWarning}
	ErrConflict                = &Error{Kind: KindConflict}
)

// Error is the typed failure returned by every core operation.
type Error struct {
	Kind   ErrorKind
	Entity string // crate, offer, product, inventoryItem, ...
	ID     string
	Field  string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	switch {
	case e.Entity != "" && e.ID != "":
		msg = fmt.Sprintf("%s %q: %s", e.Entity, e.ID, msg)
	case e.Field != "":
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind only, so errors.Is(err, ErrNotFound) works for any entity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func NotFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id, Msg: "not found"}
}

func InvalidInput(field, msg string) error {
	return &Error{Kind: KindInvalidInput, Field: field, Msg: msg}
}

func InvalidState(entity, id, msg string) error {
	return &Error{Kind: KindInvalidStateTransition, Entity: entity, ID: id, Msg: msg}
}

func Unavailable(err error) error {
	return &Error{Kind: KindStorageUnavailable, Msg: "storage unavailable", Err: err}
}

func Conflict(entity, id, msg string) error {
	return &Error{Kind: KindConflict, Entity: entity, ID: id, Msg: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
