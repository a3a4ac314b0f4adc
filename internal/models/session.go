// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package models

import "time"

// Session is a buyer-initiated verification request addressed by its token.
type Session struct { //nolint:govet // fieldalignment: readability over optimization
	ID               string           `db:"id" json:"-"`
	Token            string           `db:"session_token" json:"session_token"`
	BuyerPhone       string           `db:"buyer_phone" json:"buyer_phone"`
	BuyerEmail       string           `db:"buyer_email" json:"buyer_email,omitempty"`
	BuyerLocale      string           `db:"buyer_locale" json:"-"`
	SellerPhone      string           `db:"seller_phone" json:"seller_phone"`
	VerificationType VerificationType `db:"verification_type" json:"verification_type"`
	Status           SessionStatus    `db:"status" json:"status"`
	ExpiresAt        time.Time        `db:"expires_at" json:"expires_at"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// IsCompleted reports whether the seller finished the flow.
func (s *Session) IsCompleted() bool {
	return s.Status == StatusCompleted
}

// DisplayStatus returns the status shown to users: expired when the link
// lapsed before the flow completed, otherwise the stored status.
func (s *Session) DisplayStatus(now time.Time) SessionStatus {
	if !s.IsCompleted() && now.After(s.ExpiresAt) {
		return StatusExpired
	}
	return s.Status
}
