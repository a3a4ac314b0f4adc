// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/trustlink/trustlink/internal/models"
	"github.com/google/uuid"
)

const sessionColumns = `id, session_token, buyer_phone, buyer_email, buyer_locale, seller_phone,
	verification_type, status, expires_at, created_at, updated_at`

// CreateSession inserts a session. The ID is assigned here when empty.
func (r *Repository) CreateSession(ctx context.Context, s *models.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO verification_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		s.ID, s.Token, s.BuyerPhone, s.BuyerEmail, s.BuyerLocale, s.SellerPhone,
		string(s.VerificationType), string(s.Status), s.ExpiresAt, s.CreatedAt, s.UpdatedAt)
	return err
}

// GetSessionByToken retrieves a session by its public token.
func (r *Repository) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	var s models.Session
	err := r.db.GetContext(ctx, &s, r.db.Rebind(
		`SELECT `+sessionColumns+` FROM verification_sessions WHERE session_token = ?`), token)
	if err != nil {
		return nil, wrapError(err)
	}
	return &s, nil
}

// GetSessionByID retrieves a session by its internal ID.
func (r *Repository) GetSessionByID(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := r.db.GetContext(ctx, &s, r.db.Rebind(
		`SELECT `+sessionColumns+` FROM verification_sessions WHERE id = ?`), id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &s, nil
}

// UpdateSessionStatus moves a session from one status to another and sets
// updated_at. It returns ErrNotFound when no session with id currently has
// status from.
func (r *Repository) UpdateSessionStatus(ctx context.Context, id string, from, to models.SessionStatus, updatedAt time.Time) error {
	return r.exec(ctx,
		`UPDATE verification_sessions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), updatedAt, id, string(from))
}
