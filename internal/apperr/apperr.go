// Package apperr holds the error taxonomy shared by services and transport.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindInvalidAssignment Kind = "invalid_assignment"
	KindNotFound          Kind = "not_found"
	KindUnauthorized      Kind = "unauthorized"
	KindMalformedToken    Kind = "malformed_token"
	KindExpiredToken      Kind = "expired_token"
	KindRevokedToken      Kind = "revoked_token"
	KindForbidden         Kind = "forbidden"
	KindConflict          Kind = "conflict"
	KindRateLimited       Kind = "rate_limited"
	KindStoreUnavailable  Kind = "store_unavailable"
	KindUpstream          Kind = "upstream_unavailable"
	KindInternal          Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the package level sentinels work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrInvalidAssignment = &Error{Kind: KindInvalidAssignment}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrMalformedToken    = &Error{Kind: KindMalformedToken}
	ErrExpiredToken      = &Error{Kind: KindExpiredToken}
	ErrRevokedToken      = &Error{Kind: KindRevokedToken}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrStoreUnavailable  = &Error{Kind: KindStoreUnavailable}
	ErrUpstream          = &Error{Kind: KindUpstream}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Forbidden(message string) *Error { return New(KindForbidden, message) }

func InvalidAssignment(message string) *Error { return New(KindInvalidAssignment, message) }

func StoreUnavailable(err error) *Error {
	return Wrap(KindStoreUnavailable, "storage temporarily unavailable, retry the request", err)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns a caller-safe message. Internal errors never expose their text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}

// Retryable reports whether the same request may succeed if sent again.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindStoreUnavailable, KindUpstream, KindRateLimited:
		return true
	}
	return false
}
