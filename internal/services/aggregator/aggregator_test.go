// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package aggregator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"codeberg.org/trustlink/trustlink/internal/errs"
	"codeberg.org/trustlink/trustlink/internal/models"
	"codeberg.org/trustlink/trustlink/internal/services/aggregator"
	"codeberg.org/trustlink/trustlink/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashReference(t *testing.T) {
	a := aggregator.HashReference("8001015009087")

	assert.Len(t, a, 64)
	assert.Equal(t, a, aggregator.HashReference("8001015009087"))
	assert.NotEqual(t, a, aggregator.HashReference("8001015009088"))
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		aggregator.HashReference(""))
}

func TestRecordCheckOutcome_StoresDigestOnly(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	s := testutil.NewTestSession(t, repo, "tokenAAAAAAAAAAAAAAAAAAAAAAAAAAAA", models.TypeBoth)
	agg := aggregator.New(repo, nil)
	_, err := agg.Create(ctx, s.ID)
	require.NoError(t, err)

	raws := map[models.CheckKind]string{
		models.CheckIdentity: "8001015009087",
		models.CheckProperty: "ERF-1234-CPT",
		models.CheckVehicle:  "CA 123-456",
	}
	for kind, raw := range raws {
		_, err := agg.RecordCheckOutcome(ctx, s.ID, kind, aggregator.Outcome{Raw: raw, Verified: true, Match: true})
		require.NoError(t, err)
	}

	row := map[string]any{}
	require.NoError(t, db.QueryRowx(`SELECT * FROM verification_results WHERE session_id = ?`, s.ID).MapScan(row))
	for column, value := range row {
		text := fmt.Sprint(value)
		if b, ok := value.([]byte); ok {
			text = string(b)
		}
		for _, raw := range raws {
			assert.NotContains(t, text, raw, "raw value stored in %s", column)
		}
	}

	r, found, err := agg.Get(ctx, s.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, r.IDHash)
	assert.Equal(t, aggregator.HashReference(raws[models.CheckIdentity]), *r.IDHash)
	require.NotNil(t, r.VehicleReference)
	assert.Equal(t, aggregator.HashReference(raws[models.CheckVehicle]), *r.VehicleReference)
}

func TestRecordCheckOutcome_MatchIndependentOfStatus(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	s := testutil.NewTestSession(t, repo, "tokenBBBBBBBBBBBBBBBBBBBBBBBBBBBB", models.TypeVehicle)
	agg := aggregator.New(repo, nil)
	_, err := agg.Create(ctx, s.ID)
	require.NoError(t, err)

	r, err := agg.RecordCheckOutcome(ctx, s.ID, models.CheckVehicle, aggregator.Outcome{Raw: "CA 1", Verified: true, Match: false})
	require.NoError(t, err)
	assert.Equal(t, models.CheckVerified, r.VehicleStatus)
	require.NotNil(t, r.VehicleMatch)
	assert.False(t, *r.VehicleMatch)

	r, err = agg.RecordCheckOutcome(ctx, s.ID, models.CheckIdentity, aggregator.Outcome{Raw: "1", Verified: false, Match: true})
	require.NoError(t, err)
	assert.Equal(t, models.CheckFailed, r.IDStatus)
	require.NotNil(t, r.NameMatch)
	assert.True(t, *r.NameMatch)
}

func TestRecordCheckOutcome_NoResult(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	agg := aggregator.New(repo, nil)

	_, err := agg.RecordCheckOutcome(context.Background(), "missing", models.CheckIdentity, aggregator.Outcome{Raw: "x"})

	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestGet_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	agg := aggregator.New(repo, nil)

	r, found, err := agg.Get(context.Background(), "missing")

	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, r)
}

func TestFinalize_OnlyOnce(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	clock := testutil.NewClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	s := testutil.NewTestSession(t, repo, "tokenCCCCCCCCCCCCCCCCCCCCCCCCCCCC", models.TypeIDNumber)
	agg := aggregator.New(repo, clock.Now)
	_, err := agg.Create(ctx, s.ID)
	require.NoError(t, err)

	r, err := agg.Finalize(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, r.CompletedAt)
	assert.True(t, clock.Now().Equal(*r.CompletedAt))

	clock.Advance(time.Hour)
	again, err := agg.Finalize(ctx, s.ID)
	require.ErrorIs(t, err, errs.ErrAlreadyFinalized)
	require.NotNil(t, again)
	assert.True(t, r.CompletedAt.Equal(*again.CompletedAt))
}

func TestRecordCheckOutcome_AfterFinalize(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	s := testutil.NewTestSession(t, repo, "tokenGGGGGGGGGGGGGGGGGGGGGGGGGGGG", models.TypeIDNumber)
	agg := aggregator.New(repo, nil)
	_, err := agg.Create(ctx, s.ID)
	require.NoError(t, err)
	_, err = agg.RecordCheckOutcome(ctx, s.ID, models.CheckIdentity, aggregator.Outcome{Raw: "8001015009087", Verified: true, Match: true})
	require.NoError(t, err)
	_, err = agg.Finalize(ctx, s.ID)
	require.NoError(t, err)

	r, err := agg.RecordCheckOutcome(ctx, s.ID, models.CheckIdentity, aggregator.Outcome{Raw: "8001015009087", Verified: false})

	require.ErrorIs(t, err, errs.ErrAlreadyFinalized)
	require.NotNil(t, r)
	assert.Equal(t, models.CheckVerified, r.IDStatus)
	assert.True(t, r.Passed(models.CheckIdentity))
}

func TestFinalize_NoResult(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	agg := aggregator.New(repo, nil)

	_, err := agg.Finalize(context.Background(), "missing")

	assert.ErrorIs(t, err, errs.ErrNotFound)
}

type brokenStore struct {
	aggregator.Store
}

func (brokenStore) CreateResult(context.Context, string, time.Time) (*models.Result, error) {
	return nil, errors.New("disk full")
}

func TestCreate_PersistenceError(t *testing.T) {
	agg := aggregator.New(brokenStore{}, nil)

	_, err := agg.Create(context.Background(), "s1")

	assert.ErrorIs(t, err, errs.ErrPersistence)
}

func result(id, property, vehicle models.CheckStatus, nameMatch, propertyMatch, vehicleMatch bool) *models.Result {
	return &models.Result{
		IDStatus:       id,
		NameMatch:      &nameMatch,
		PropertyStatus: property,
		PropertyMatch:  &propertyMatch,
		VehicleStatus:  vehicle,
		VehicleMatch:   &vehicleMatch,
	}
}

func TestIsFullyVerified(t *testing.T) {
	v, f, p := models.CheckVerified, models.CheckFailed, models.CheckPending

	tests := []struct {
		name   string
		result *models.Result
		vt     models.VerificationType
		want   bool
	}{
		{"id only passes", result(v, p, p, true, false, false), models.TypeIDNumber, true},
		{"name mismatch", result(v, p, p, false, false, false), models.TypeIDNumber, false},
		{"id failed", result(f, p, p, true, false, false), models.TypeIDNumber, false},
		{"property passes", result(v, v, p, true, true, false), models.TypeProperty, true},
		{"property mismatch", result(v, v, p, true, false, false), models.TypeProperty, false},
		{"vehicle ignores property", result(v, p, v, true, false, true), models.TypeVehicle, true},
		{"both passes", result(v, v, v, true, true, true), models.TypeBoth, true},
		{"both with vehicle mismatch", result(v, v, v, true, true, false), models.TypeBoth, false},
		{"both with vehicle pending", result(v, v, p, true, true, true), models.TypeBoth, false},
		{"unknown type", result(v, v, v, true, true, true), models.VerificationType("x"), false},
		{"nil result", nil, models.TypeBoth, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, aggregator.IsFullyVerified(tt.result, tt.vt))
		})
	}
}

func TestIsFullyVerified_NilMatch(t *testing.T) {
	r := &models.Result{IDStatus: models.CheckVerified}

	assert.False(t, aggregator.IsFullyVerified(r, models.TypeIDNumber))
}

func TestSummarize(t *testing.T) {
	r := result(models.CheckVerified, models.CheckPending, models.CheckVerified, true, false, false)

	s := aggregator.Summarize(r, models.TypeVehicle)

	require.Len(t, s.Checks, 3)
	assert.False(t, s.FullyVerified)

	required := s.Required()
	require.Len(t, required, 2)
	assert.Equal(t, models.CheckIdentity, required[0].Kind)
	assert.True(t, required[0].Passed)
	assert.Equal(t, models.CheckVehicle, required[1].Kind)
	assert.False(t, required[1].Passed)

	assert.Equal(t, models.CheckSkipped, s.Checks[1].Status)
	assert.Nil(t, s.Checks[1].Match)
}

func TestSummarize_NilResult(t *testing.T) {
	s := aggregator.Summarize(nil, models.TypeBoth)

	for _, c := range s.Checks {
		assert.Equal(t, models.CheckPending, c.Status)
	}
	assert.False(t, s.FullyVerified)
}

func TestRequiredChecks(t *testing.T) {
	assert.Equal(t, []models.CheckKind{models.CheckIdentity}, aggregator.RequiredChecks(models.TypeIDNumber))
	assert.Equal(t,
		[]models.CheckKind{models.CheckIdentity, models.CheckProperty, models.CheckVehicle},
		aggregator.RequiredChecks(models.TypeBoth))
}
