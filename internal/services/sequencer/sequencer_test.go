// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package sequencer_test

import (
	"testing"
	"time"

	"codeberg.org/trustlink/trustlink/internal/errs"
	"codeberg.org/trustlink/trustlink/internal/models"
	"codeberg.org/trustlink/trustlink/internal/services/sequencer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStep(t *testing.T) {
	tests := []struct {
		vt      models.VerificationType
		current sequencer.Step
		want    sequencer.Step
	}{
		{models.TypeBoth, sequencer.StepIntro, sequencer.StepID},
		{models.TypeBoth, sequencer.StepID, sequencer.StepProperty},
		{models.TypeBoth, sequencer.StepProperty, sequencer.StepVehicle},
		{models.TypeBoth, sequencer.StepVehicle, sequencer.StepComplete},
		{models.TypeIDNumber, sequencer.StepID, sequencer.StepComplete},
		{models.TypeProperty, sequencer.StepID, sequencer.StepProperty},
		{models.TypeProperty, sequencer.StepProperty, sequencer.StepComplete},
		{models.TypeVehicle, sequencer.StepID, sequencer.StepVehicle},
		{models.TypeVehicle, sequencer.StepVehicle, sequencer.StepComplete},
		{models.TypeBoth, sequencer.StepComplete, sequencer.StepComplete},
		{models.TypeBoth, sequencer.StepExpired, sequencer.StepExpired},
	}

	for _, tt := range tests {
		t.Run(string(tt.vt)+"/"+string(tt.current), func(t *testing.T) {
			assert.Equal(t, tt.want, sequencer.NextStep(tt.vt, tt.current))
		})
	}
}

func TestSteps(t *testing.T) {
	assert.Equal(t, []sequencer.Step{sequencer.StepID}, sequencer.Steps(models.TypeIDNumber))
	assert.Equal(t, []sequencer.Step{sequencer.StepID, sequencer.StepVehicle}, sequencer.Steps(models.TypeVehicle))
	assert.Equal(t,
		[]sequencer.Step{sequencer.StepID, sequencer.StepProperty, sequencer.StepVehicle},
		sequencer.Steps(models.TypeBoth))
}

func TestStepNumber(t *testing.T) {
	n, total := sequencer.StepNumber(models.TypeBoth, sequencer.StepVehicle)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, total)

	n, total = sequencer.StepNumber(models.TypeProperty, sequencer.StepID)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, total)

	n, _ = sequencer.StepNumber(models.TypeIDNumber, sequencer.StepIntro)
	assert.Equal(t, 0, n)
}

func TestStepKind(t *testing.T) {
	kind, ok := sequencer.StepProperty.Kind()
	assert.True(t, ok)
	assert.Equal(t, models.CheckProperty, kind)

	_, ok = sequencer.StepIntro.Kind()
	assert.False(t, ok)
}

func TestInitialStep(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	yes := true
	session := func(status models.SessionStatus, expires time.Time) *models.Session {
		return &models.Session{VerificationType: models.TypeBoth, Status: status, ExpiresAt: expires}
	}
	pendingAll := &models.Result{
		IDStatus:       models.CheckPending,
		PropertyStatus: models.CheckPending,
		VehicleStatus:  models.CheckPending,
	}
	idDone := &models.Result{
		IDStatus:       models.CheckVerified,
		NameMatch:      &yes,
		PropertyStatus: models.CheckPending,
		VehicleStatus:  models.CheckPending,
	}
	allDone := &models.Result{
		IDStatus:       models.CheckVerified,
		PropertyStatus: models.CheckVerified,
		VehicleStatus:  models.CheckFailed,
	}

	tests := []struct {
		name    string
		session *models.Session
		result  *models.Result
		want    sequencer.Step
	}{
		{"pending", session(models.StatusPending, now.Add(time.Minute)), nil, sequencer.StepIntro},
		{"expired pending", session(models.StatusPending, now.Add(-time.Second)), nil, sequencer.StepExpired},
		{"expired in progress resumes", session(models.StatusInProgress, now.Add(-time.Second)), idDone, sequencer.StepProperty},
		{"expired in progress without result", session(models.StatusInProgress, now.Add(-time.Hour)), nil, sequencer.StepID},
		{"expiry boundary", session(models.StatusPending, now), nil, sequencer.StepIntro},
		{"completed", session(models.StatusCompleted, now.Add(time.Minute)), allDone, sequencer.StepComplete},
		{"completed after expiry", session(models.StatusCompleted, now.Add(-time.Hour)), allDone, sequencer.StepComplete},
		{"started without result", session(models.StatusInProgress, now.Add(time.Minute)), nil, sequencer.StepID},
		{"resume at id", session(models.StatusInProgress, now.Add(time.Minute)), pendingAll, sequencer.StepID},
		{"resume at property", session(models.StatusInProgress, now.Add(time.Minute)), idDone, sequencer.StepProperty},
		{"all checks recorded", session(models.StatusInProgress, now.Add(time.Minute)), allDone, sequencer.StepComplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sequencer.InitialStep(tt.session, tt.result, now))
		})
	}
}

func TestInitialStep_SkipsChecksNotRequired(t *testing.T) {
	yes := true
	s := &models.Session{
		VerificationType: models.TypeVehicle,
		Status:           models.StatusInProgress,
		ExpiresAt:        time.Now().Add(time.Hour),
	}
	r := &models.Result{
		IDStatus:       models.CheckVerified,
		NameMatch:      &yes,
		PropertyStatus: models.CheckPending,
		VehicleStatus:  models.CheckPending,
	}

	assert.Equal(t, sequencer.StepVehicle, sequencer.InitialStep(s, r, time.Now()))
}

func TestCurrentStep(t *testing.T) {
	assert.Equal(t, sequencer.StepID, sequencer.CurrentStep(models.TypeBoth, nil))

	r := &models.Result{
		IDStatus:       models.CheckFailed,
		PropertyStatus: models.CheckVerified,
		VehicleStatus:  models.CheckPending,
	}
	assert.Equal(t, sequencer.StepVehicle, sequencer.CurrentStep(models.TypeBoth, r))
	assert.Equal(t, sequencer.StepComplete, sequencer.CurrentStep(models.TypeProperty, r))
}

func TestRequireFields(t *testing.T) {
	require.NoError(t, sequencer.RequireFields(map[string]string{"id_number": "8001015009087"}))

	err := sequencer.RequireFields(map[string]string{
		"id_number": "  ",
		"full_name": "",
		"other":     "x",
	})

	require.ErrorIs(t, err, errs.ErrValidation)
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"full_name", "id_number"}, verr.Fields)
}
