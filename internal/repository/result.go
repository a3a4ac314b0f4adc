// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codeberg.org/trustlink/trustlink/internal/models"
	"github.com/google/uuid"
)

const resultColumns = `id, session_id,
	id_verification_status, id_hash, name_match,
	property_verification_status, property_reference, property_match,
	vehicle_verification_status, vehicle_reference, vehicle_match,
	completed_at, created_at`

// checkColumns maps a check kind to its (status, reference, match) columns.
var checkColumns = map[models.CheckKind][3]string{
	models.CheckIdentity: {"id_verification_status", "id_hash", "name_match"},
	models.CheckProperty: {"property_verification_status", "property_reference", "property_match"},
	models.CheckVehicle:  {"vehicle_verification_status", "vehicle_reference", "vehicle_match"},
}

// CreateResult inserts an empty result row for a session. Every check starts
// as pending.
func (r *Repository) CreateResult(ctx context.Context, sessionID string, createdAt time.Time) (*models.Result, error) {
	result := &models.Result{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		IDStatus:       models.CheckPending,
		PropertyStatus: models.CheckPending,
		VehicleStatus:  models.CheckPending,
		CreatedAt:      createdAt,
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO verification_results (id, session_id, created_at) VALUES (?, ?, ?)`),
		result.ID, sessionID, createdAt)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetResultBySessionID retrieves the result for a session.
func (r *Repository) GetResultBySessionID(ctx context.Context, sessionID string) (*models.Result, error) {
	var result models.Result
	err := r.db.GetContext(ctx, &result, r.db.Rebind(
		`SELECT `+resultColumns+` FROM verification_results WHERE session_id = ?`), sessionID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &result, nil
}

// UpdateResultCheck stores the outcome of one check. reference must already
// be a digest; raw values never reach this layer. Finalized results are left
// untouched and reported as ErrNotFound.
func (r *Repository) UpdateResultCheck(ctx context.Context, sessionID string, kind models.CheckKind, status models.CheckStatus, reference string, match bool) error {
	cols, ok := checkColumns[kind]
	if !ok {
		return fmt.Errorf("unknown check kind %q", kind)
	}
	query := fmt.Sprintf(`UPDATE verification_results SET %s = ?, %s = ?, %s = ? WHERE session_id = ? AND completed_at IS NULL`,
		cols[0], cols[1], cols[2])
	return r.exec(ctx, query, string(status), reference, match, sessionID)
}

// MarkResultCompleted stamps completed_at unless it is already set.
// It reports whether this call performed the stamp.
func (r *Repository) MarkResultCompleted(ctx context.Context, sessionID string, completedAt time.Time) (bool, error) {
	err := r.exec(ctx,
		`UPDATE verification_results SET completed_at = ? WHERE session_id = ? AND completed_at IS NULL`,
		completedAt, sessionID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
