// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/trustlink/trustlink/internal/models"
	"codeberg.org/trustlink/trustlink/internal/repository"
	"codeberg.org/trustlink/trustlink/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateResult_AllChecksPending(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	s := testutil.NewTestSession(t, repo, "tokenFFFFFFFFFFFFFFFFFFFFFFFFFFFF", models.TypeBoth)

	_, err := repo.CreateResult(ctx, s.ID, time.Now().UTC())
	require.NoError(t, err)

	got, err := repo.GetResultBySessionID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CheckPending, got.IDStatus)
	assert.Equal(t, models.CheckPending, got.PropertyStatus)
	assert.Equal(t, models.CheckPending, got.VehicleStatus)
	assert.Nil(t, got.IDHash)
	assert.Nil(t, got.NameMatch)
	assert.Nil(t, got.CompletedAt)
}

func TestCreateResult_OnePerSession(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	s := testutil.NewTestSession(t, repo, "tokenGGGGGGGGGGGGGGGGGGGGGGGGGGGG", models.TypeBoth)

	_, err := repo.CreateResult(ctx, s.ID, time.Now().UTC())
	require.NoError(t, err)
	_, err = repo.CreateResult(ctx, s.ID, time.Now().UTC())

	assert.Error(t, err)
}

func TestGetResultBySessionID_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetResultBySessionID(context.Background(), "missing")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateResultCheck(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	s := testutil.NewTestSession(t, repo, "tokenHHHHHHHHHHHHHHHHHHHHHHHHHHHH", models.TypeBoth)
	_, err := repo.CreateResult(ctx, s.ID, time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, repo.UpdateResultCheck(ctx, s.ID, models.CheckIdentity, models.CheckVerified, "idhash", true))
	require.NoError(t, repo.UpdateResultCheck(ctx, s.ID, models.CheckVehicle, models.CheckFailed, "vehhash", false))

	got, err := repo.GetResultBySessionID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CheckVerified, got.IDStatus)
	require.NotNil(t, got.IDHash)
	assert.Equal(t, "idhash", *got.IDHash)
	require.NotNil(t, got.NameMatch)
	assert.True(t, *got.NameMatch)

	assert.Equal(t, models.CheckPending, got.PropertyStatus)
	assert.Nil(t, got.PropertyMatch)

	assert.Equal(t, models.CheckFailed, got.VehicleStatus)
	require.NotNil(t, got.VehicleMatch)
	assert.False(t, *got.VehicleMatch)
}

func TestUpdateResultCheck_UnknownKind(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.UpdateResultCheck(context.Background(), "any", models.CheckKind("bogus"), models.CheckVerified, "x", true)

	assert.Error(t, err)
}

func TestUpdateResultCheck_NoResult(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.UpdateResultCheck(context.Background(), "missing", models.CheckIdentity, models.CheckVerified, "x", true)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMarkResultCompleted_OnlyOnce(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	s := testutil.NewTestSession(t, repo, "tokenIIIIIIIIIIIIIIIIIIIIIIIIIIII", models.TypeIDNumber)
	_, err := repo.CreateResult(ctx, s.ID, time.Now().UTC())
	require.NoError(t, err)

	first := time.Now().UTC()
	stamped, err := repo.MarkResultCompleted(ctx, s.ID, first)
	require.NoError(t, err)
	assert.True(t, stamped)

	stamped, err = repo.MarkResultCompleted(ctx, s.ID, first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, stamped)

	got, err := repo.GetResultBySessionID(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.WithinDuration(t, first, *got.CompletedAt, time.Second)
}
