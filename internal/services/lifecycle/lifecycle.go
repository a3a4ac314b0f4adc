// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

// Package lifecycle owns session creation, lookup, expiry and status changes.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/trustlink/trustlink/internal/errs"
	"codeberg.org/trustlink/trustlink/internal/i18n"
	"codeberg.org/trustlink/trustlink/internal/models"
)

// DefaultTTL is how long a verification link stays valid after creation.
const DefaultTTL = 30 * time.Minute

// Store is the slice of the session store the manager needs.
type Store interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSessionByToken(ctx context.Context, token string) (*models.Session, error)
	GetSessionByID(ctx context.Context, id string) (*models.Session, error)
	UpdateSessionStatus(ctx context.Context, id string, from, to models.SessionStatus, updatedAt time.Time) error
}

// BuyerContact holds the buyer's contact details.
type BuyerContact struct {
	Phone string
	Email string
}

// Expiry is the read-time expiry view of a session.
type Expiry struct {
	Expired bool
}

// Manager creates sessions and moves them through their lifecycle.
type Manager struct {
	store Store
	now   func() time.Time
	ttl   time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides the link lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new lifecycle manager.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		now:   time.Now,
		ttl:   DefaultTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now returns the manager's current time in UTC.
func (m *Manager) Now() time.Time {
	return m.now().UTC()
}

// CreateSession creates a pending session with a fresh token. The locale of
// ctx is kept as the buyer's notification language. Store failures are
// returned as persistence errors and never retried.
func (m *Manager) CreateSession(ctx context.Context, buyer BuyerContact, sellerPhone string, vt models.VerificationType) (*models.Session, error) {
	var missing []string
	if strings.TrimSpace(buyer.Phone) == "" {
		missing = append(missing, "buyer_phone")
	}
	if strings.TrimSpace(sellerPhone) == "" {
		missing = append(missing, "seller_phone")
	}
	if !vt.Valid() {
		missing = append(missing, "verification_type")
	}
	if len(missing) > 0 {
		return nil, &errs.ValidationError{Fields: missing}
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	now := m.Now()
	s := &models.Session{
		Token:            token,
		BuyerPhone:       NormalizePhone(buyer.Phone),
		BuyerEmail:       strings.TrimSpace(buyer.Email),
		BuyerLocale:      i18n.GetLocale(ctx),
		SellerPhone:      NormalizePhone(sellerPhone),
		VerificationType: vt,
		Status:           models.StatusPending,
		ExpiresAt:        now.Add(m.ttl),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := m.store.CreateSession(ctx, s); err != nil {
		return nil, errs.Persistence("create session", err)
	}

	return s, nil
}

// FetchByToken looks up a session by its public token. A missing session is
// reported with found=false and a nil error.
func (m *Manager) FetchByToken(ctx context.Context, token string) (*models.Session, bool, error) {
	if !ValidTokenFormat(token) {
		return nil, false, nil
	}
	return found(m.store.GetSessionByToken(ctx, token))
}

// FetchByID looks up a session by its internal ID.
func (m *Manager) FetchByID(ctx context.Context, id string) (*models.Session, bool, error) {
	if id == "" {
		return nil, false, nil
	}
	return found(m.store.GetSessionByID(ctx, id))
}

func found(s *models.Session, err error) (*models.Session, bool, error) {
	if errors.Is(err, errs.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Persistence("fetch session", err)
	}
	return s, true, nil
}

// EvaluateExpiry reports whether now is past the session's expiry, regardless
// of its stored status. now == expires_at is not expired.
func EvaluateExpiry(s *models.Session, now time.Time) Expiry {
	return Expiry{Expired: now.After(s.ExpiresAt)}
}

// Expiry evaluates expiry against the manager's clock.
func (m *Manager) Expiry(s *models.Session) Expiry {
	return EvaluateExpiry(s, m.Now())
}

// AdvanceStatus moves a session one step forward and refreshes updated_at.
// Backward, skip-level and no-op moves are rejected with a TransitionError,
// as is a move from a status the stored session no longer has.
func (m *Manager) AdvanceStatus(ctx context.Context, s *models.Session, to models.SessionStatus) error {
	if err := models.ValidateTransition(s.Status, to); err != nil {
		return fmt.Errorf("advance session %s: %w", s.ID, err)
	}

	now := m.Now()
	err := m.store.UpdateSessionStatus(ctx, s.ID, s.Status, to, now)
	if errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("advance session %s: stale status: %w",
			s.ID, &errs.TransitionError{From: string(s.Status), To: string(to)})
	}
	if err != nil {
		return errs.Persistence("update session status", err)
	}

	s.Status = to
	s.UpdatedAt = now
	return nil
}
