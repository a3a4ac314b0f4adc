// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package models

import "time"

// Result accumulates the check outcomes for one session.
// Reference columns only ever hold hex SHA-256 digests.
type Result struct { //nolint:govet // fieldalignment: readability over optimization
	ID        string `db:"id" json:"-"`
	SessionID string `db:"session_id" json:"-"`

	IDStatus  CheckStatus `db:"id_verification_status" json:"id_verification_status"`
	IDHash    *string     `db:"id_hash" json:"id_hash"`
	NameMatch *bool       `db:"name_match" json:"name_match"`

	PropertyStatus    CheckStatus `db:"property_verification_status" json:"property_verification_status"`
	PropertyReference *string     `db:"property_reference" json:"property_reference"`
	PropertyMatch     *bool       `db:"property_match" json:"property_match"`

	VehicleStatus    CheckStatus `db:"vehicle_verification_status" json:"vehicle_verification_status"`
	VehicleReference *string     `db:"vehicle_reference" json:"vehicle_reference"`
	VehicleMatch     *bool       `db:"vehicle_match" json:"vehicle_match"`

	CompletedAt *time.Time `db:"completed_at" json:"completed_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Check returns the status and match flag stored for kind.
func (r *Result) Check(kind CheckKind) (CheckStatus, *bool) {
	switch kind {
	case CheckIdentity:
		return r.IDStatus, r.NameMatch
	case CheckProperty:
		return r.PropertyStatus, r.PropertyMatch
	case CheckVehicle:
		return r.VehicleStatus, r.VehicleMatch
	}
	return CheckPending, nil
}

// Passed reports whether kind is verified with a positive match.
func (r *Result) Passed(kind CheckKind) bool {
	status, match := r.Check(kind)
	return status == CheckVerified && match != nil && *match
}

// IsFinalized reports whether completed_at has been stamped.
func (r *Result) IsFinalized() bool {
	return r.CompletedAt != nil
}
