// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"slices"

	"codeberg.org/trustlink/trustlink/internal/errs"
)

// VerificationType selects which ownership checks a session requires.
// Identity is checked for every type.
type VerificationType string

const (
	TypeIDNumber VerificationType = "idNumber"
	TypeProperty VerificationType = "property"
	TypeVehicle  VerificationType = "vehicle"
	TypeBoth     VerificationType = "both"
)

// VerificationTypes lists the accepted types in display order.
var VerificationTypes = []VerificationType{TypeProperty, TypeVehicle, TypeBoth, TypeIDNumber}

// Valid reports whether t is a known verification type.
func (t VerificationType) Valid() bool {
	return slices.Contains(VerificationTypes, t)
}

// RequiresProperty reports whether the property check is part of the flow.
func (t VerificationType) RequiresProperty() bool {
	return t == TypeProperty || t == TypeBoth
}

// RequiresVehicle reports whether the vehicle check is part of the flow.
func (t VerificationType) RequiresVehicle() bool {
	return t == TypeVehicle || t == TypeBoth
}

// Requires reports whether the check kind is part of the flow for t.
func (t VerificationType) Requires(kind CheckKind) bool {
	switch kind {
	case CheckIdentity:
		return t.Valid()
	case CheckProperty:
		return t.RequiresProperty()
	case CheckVehicle:
		return t.RequiresVehicle()
	}
	return false
}

// SessionStatus is the stored lifecycle state of a session.
type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	// StatusExpired is a read-time view only and is never stored.
	StatusExpired SessionStatus = "expired"
)

// next holds the single legal forward move for each stored status.
var next = map[SessionStatus]SessionStatus{
	StatusPending:    StatusInProgress,
	StatusInProgress: StatusCompleted,
}

// ValidateTransition rejects any status change other than the next forward
// step: pending -> in_progress -> completed.
func ValidateTransition(from, to SessionStatus) error {
	if want, ok := next[from]; ok && want == to {
		return nil
	}
	return &errs.TransitionError{From: string(from), To: string(to)}
}

// CheckKind identifies one of the three checks.
type CheckKind string

const (
	CheckIdentity CheckKind = "identity"
	CheckProperty CheckKind = "property"
	CheckVehicle  CheckKind = "vehicle"
)

// CheckStatus is the outcome state of a single check.
type CheckStatus string

const (
	CheckVerified CheckStatus = "verified"
	CheckFailed   CheckStatus = "failed"
	CheckPending  CheckStatus = "pending"
	CheckSkipped  CheckStatus = "skipped"
)
