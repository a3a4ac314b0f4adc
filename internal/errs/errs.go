// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

// Package errs defines the error kinds shared by the verification services.
//
// Services return these sentinels wrapped with context; handlers translate them
// into user-visible messages through MessageID. Absence of a record is reported
// through ErrNotFound, which callers treat as a normal outcome.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrPersistence       = errors.New("persistence error")
	ErrValidation        = errors.New("validation error")
	ErrExpired           = errors.New("session expired")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrAlreadyFinalized  = errors.New("result already finalized")
	ErrPhoneMismatch     = errors.New("phone number does not match")
)

// Persistence wraps a store failure for the named operation.
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// ValidationError reports required fields that were left empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// TransitionError is returned for any status change other than the next
// forward step, and for flow steps submitted out of turn.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move session from %q to %q", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// MessageID maps an error to the i18n message shown to end users.
func MessageID(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "error_missing_fields"
	case errors.Is(err, ErrNotFound):
		return "error_invalid_link"
	case errors.Is(err, ErrPhoneMismatch):
		return "error_phone_mismatch"
	case errors.Is(err, ErrExpired):
		return "error_link_expired"
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrAlreadyFinalized):
		return "error_step_unavailable"
	default:
		return "error_generic"
	}
}
