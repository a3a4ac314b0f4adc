// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

// Package sequencer decides which seller step comes next for a verification type.
// Everything here is pure and safe for concurrent use.
package sequencer

import (
	"slices"
	"strings"
	"time"

	"codeberg.org/trustlink/trustlink/internal/errs"
	"codeberg.org/trustlink/trustlink/internal/models"
)

// Step is one screen of the seller flow.
type Step string

const (
	StepIntro    Step = "intro"
	StepID       Step = "id"
	StepProperty Step = "property"
	StepVehicle  Step = "vehicle"
	StepComplete Step = "complete"
	StepExpired  Step = "expired"
)

// checkSteps maps each check step to the check it records.
var checkSteps = map[Step]models.CheckKind{
	StepID:       models.CheckIdentity,
	StepProperty: models.CheckProperty,
	StepVehicle:  models.CheckVehicle,
}

// Kind returns the check recorded by s. ok is false for non-check steps.
func (s Step) Kind() (models.CheckKind, bool) {
	kind, ok := checkSteps[s]
	return kind, ok
}

// Steps returns the check steps for vt in the order the seller sees them.
// Identity always comes first.
func Steps(vt models.VerificationType) []Step {
	steps := []Step{StepID}
	if vt.RequiresProperty() {
		steps = append(steps, StepProperty)
	}
	if vt.RequiresVehicle() {
		steps = append(steps, StepVehicle)
	}
	return steps
}

// NextStep returns the step following current for vt.
func NextStep(vt models.VerificationType, current Step) Step {
	switch current {
	case StepIntro:
		return StepID
	case StepID:
		if vt.RequiresProperty() {
			return StepProperty
		}
		if vt.RequiresVehicle() {
			return StepVehicle
		}
		return StepComplete
	case StepProperty:
		if vt.RequiresVehicle() {
			return StepVehicle
		}
		return StepComplete
	case StepExpired:
		return StepExpired
	default:
		return StepComplete
	}
}

// StepNumber returns the 1-based position of step among the check steps of vt
// and the number of check steps. n is 0 for steps outside the list.
func StepNumber(vt models.VerificationType, step Step) (n, total int) {
	steps := Steps(vt)
	return slices.Index(steps, step) + 1, len(steps)
}

// InitialStep picks the step a seller lands on when opening the link.
// A completed session always shows the final view, even after expiry. Only a
// session that was never started can expire; in-progress sessions resume at
// the first required check still pending. result may be nil when the flow
// has not been started.
func InitialStep(s *models.Session, result *models.Result, now time.Time) Step {
	switch s.Status {
	case models.StatusCompleted:
		return StepComplete
	case models.StatusPending:
		if now.After(s.ExpiresAt) {
			return StepExpired
		}
		return StepIntro
	default:
		return CurrentStep(s.VerificationType, result)
	}
}

// CurrentStep returns the first check step of vt whose check is still pending
// in result, or StepComplete once every required check has an outcome.
func CurrentStep(vt models.VerificationType, result *models.Result) Step {
	if result == nil {
		return StepID
	}
	for _, step := range Steps(vt) {
		kind, _ := step.Kind()
		if status, _ := result.Check(kind); status == models.CheckPending {
			return step
		}
	}
	return StepComplete
}

// RequireFields returns a ValidationError naming every blank field.
func RequireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return &errs.ValidationError{Fields: missing}
}
