// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

// Package aggregator records check outcomes and derives the overall verdict.
package aggregator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"codeberg.org/trustlink/trustlink/internal/errs"
	"codeberg.org/trustlink/trustlink/internal/models"
	"github.com/samber/lo"
)

// Store is the slice of the result store the aggregator needs.
type Store interface {
	CreateResult(ctx context.Context, sessionID string, createdAt time.Time) (*models.Result, error)
	GetResultBySessionID(ctx context.Context, sessionID string) (*models.Result, error)
	UpdateResultCheck(ctx context.Context, sessionID string, kind models.CheckKind, status models.CheckStatus, reference string, match bool) error
	MarkResultCompleted(ctx context.Context, sessionID string, completedAt time.Time) (bool, error)
}

// Outcome is the answer of one check before it is stored. Raw is the value the
// seller entered and is hashed before it reaches the store.
type Outcome struct {
	Raw      string
	Verified bool
	Match    bool
}

// checkOrder is the order checks are presented in.
var checkOrder = []models.CheckKind{models.CheckIdentity, models.CheckProperty, models.CheckVehicle}

// Aggregator owns the result row of each session.
type Aggregator struct {
	store Store
	now   func() time.Time
}

// New creates an aggregator. A nil now uses time.Now.
func New(store Store, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{store: store, now: now}
}

// HashReference returns the hex SHA-256 digest of raw.
func HashReference(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Create inserts the result row for a session with every check pending.
func (a *Aggregator) Create(ctx context.Context, sessionID string) (*models.Result, error) {
	r, err := a.store.CreateResult(ctx, sessionID, a.now().UTC())
	if err != nil {
		return nil, errs.Persistence("create result", err)
	}
	return r, nil
}

// Get returns the result row of a session. A missing row is reported with
// found=false and a nil error.
func (a *Aggregator) Get(ctx context.Context, sessionID string) (*models.Result, bool, error) {
	r, err := a.store.GetResultBySessionID(ctx, sessionID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Persistence("fetch result", err)
	}
	return r, true, nil
}

// RecordCheckOutcome hashes the raw value and stores status, digest and match
// flag for kind. The status reflects Verified only; Match is kept separately.
// A finalized result is returned unchanged with ErrAlreadyFinalized.
func (a *Aggregator) RecordCheckOutcome(ctx context.Context, sessionID string, kind models.CheckKind, o Outcome) (*models.Result, error) {
	status := models.CheckFailed
	if o.Verified {
		status = models.CheckVerified
	}

	err := a.store.UpdateResultCheck(ctx, sessionID, kind, status, HashReference(o.Raw), o.Match)
	if errors.Is(err, errs.ErrNotFound) {
		r, found, getErr := a.Get(ctx, sessionID)
		if getErr != nil {
			return nil, getErr
		}
		if found && r.IsFinalized() {
			return r, errs.ErrAlreadyFinalized
		}
		return nil, fmt.Errorf("record %s check: %w", kind, err)
	}
	if err != nil {
		return nil, errs.Persistence("record "+string(kind)+" check", err)
	}

	r, found, err := a.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("record %s check: result %w", kind, errs.ErrNotFound)
	}
	return r, nil
}

// Finalize stamps completed_at. A second call leaves the stamp untouched and
// returns the stored result together with ErrAlreadyFinalized.
func (a *Aggregator) Finalize(ctx context.Context, sessionID string) (*models.Result, error) {
	stamped, err := a.store.MarkResultCompleted(ctx, sessionID, a.now().UTC())
	if err != nil {
		return nil, errs.Persistence("finalize result", err)
	}

	r, found, err := a.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("finalize result: %w", errs.ErrNotFound)
	}
	if !stamped {
		return r, errs.ErrAlreadyFinalized
	}
	return r, nil
}

// RequiredChecks lists the checks vt requires in presentation order.
func RequiredChecks(vt models.VerificationType) []models.CheckKind {
	return lo.Filter(checkOrder, func(kind models.CheckKind, _ int) bool {
		return vt.Requires(kind)
	})
}

// IsFullyVerified reports whether every check required by vt is verified with
// a positive match. Identity is always required; both requires property and
// vehicle.
func IsFullyVerified(r *models.Result, vt models.VerificationType) bool {
	if r == nil || !vt.Valid() {
		return false
	}
	return lo.EveryBy(RequiredChecks(vt), r.Passed)
}

// CheckSummary is the display view of one check.
type CheckSummary struct {
	Kind     models.CheckKind
	Required bool
	Status   models.CheckStatus
	Match    *bool
	Passed   bool
}

// Summary is the display view of a result.
type Summary struct {
	Checks        []CheckSummary
	FullyVerified bool
	CompletedAt   *time.Time
}

// Required returns only the checks that are part of the flow.
func (s Summary) Required() []CheckSummary {
	return lo.Filter(s.Checks, func(c CheckSummary, _ int) bool { return c.Required })
}

// Summarize builds the display view of r for vt. Checks not required by vt
// are reported as skipped.
func Summarize(r *models.Result, vt models.VerificationType) Summary {
	if r == nil {
		r = &models.Result{
			IDStatus:       models.CheckPending,
			PropertyStatus: models.CheckPending,
			VehicleStatus:  models.CheckPending,
		}
	}
	checks := lo.Map(checkOrder, func(kind models.CheckKind, _ int) CheckSummary {
		status, match := r.Check(kind)
		required := vt.Requires(kind)
		if !required {
			status, match = models.CheckSkipped, nil
		}
		return CheckSummary{
			Kind:     kind,
			Required: required,
			Status:   status,
			Match:    match,
			Passed:   required && r.Passed(kind),
		}
	})
	return Summary{
		Checks:        checks,
		FullyVerified: IsFullyVerified(r, vt),
		CompletedAt:   r.CompletedAt,
	}
}
