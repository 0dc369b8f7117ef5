package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrAccountDisabled         = errors.New("account disabled")
	ErrAccountLocked           = errors.New("account locked")
	ErrCredentialsExpired      = errors.New("credentials expired")
	ErrInvalidToken            = errors.New("invalid token")
	ErrExpiredToken            = errors.New("expired token")
	ErrSessionExpiredOrRevoked = errors.New("session expired or revoked")
	ErrForbidden               = errors.New("forbidden")
	ErrUnauthenticated         = errors.New("unauthenticated")
	ErrConflict                = errors.New("conflict")
	ErrNotFound                = errors.New("not found")
	ErrBadRequest              = errors.New("bad request")
)

// ValidationError is a BadRequest that carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrBadRequest }

func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add records another field failure; nil receiver starts a new error.
func (e *ValidationError) Add(field, msg string) *ValidationError {
	if e == nil {
		return Invalid(field, msg)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
	return e
}

// Err returns nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// DetailedError attaches a message that is safe to show to the caller.
type DetailedError struct {
	Err     error
	Message string
}

func (d *DetailedError) Error() string { return d.Message + ": " + d.Err.Error() }
func (d *DetailedError) Unwrap() error { return d.Err }

func Detail(err error, msg string) error { return &DetailedError{Err: err, Message: msg} }
