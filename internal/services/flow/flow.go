// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

// Package flow drives a seller through the verification steps of a session.
//
// It composes the lifecycle manager, the sequencer, the checker and the
// aggregator. Each call runs sequentially within one request; completion
// finalizes the result, marks the session completed and hands the outcome to
// the notifier without waiting for delivery.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codeberg.org/trustlink/trustlink/internal/errs"
	"codeberg.org/trustlink/trustlink/internal/metrics"
	"codeberg.org/trustlink/trustlink/internal/models"
	"codeberg.org/trustlink/trustlink/internal/services/aggregator"
	"codeberg.org/trustlink/trustlink/internal/services/checker"
	"codeberg.org/trustlink/trustlink/internal/services/lifecycle"
	"codeberg.org/trustlink/trustlink/internal/services/sequencer"
	"codeberg.org/trustlink/trustlink/internal/sse"
)

// Notifier delivers the outcome of a completed session.
type Notifier interface {
	Dispatch(ctx context.Context, s *models.Session, r *models.Result)
}

// Publisher pushes events to clients watching a session token.
type Publisher interface {
	Publish(topic, message string)
}

// Event names published on a session token.
const (
	EventStarted   = "started"
	EventProgress  = "progress"
	EventCompleted = "completed"
)

// Deps are the collaborators of a Service.
type Deps struct {
	Lifecycle  *lifecycle.Manager
	Aggregator *aggregator.Aggregator
	Checker    checker.Checker
	Notifier   Notifier
	Events     Publisher
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	// ConfirmSellerPhone requires the seller to re-enter their phone number
	// before the flow starts.
	ConfirmSellerPhone bool
}

// Service runs seller verification flows.
type Service struct {
	Deps
}

// New creates a flow service.
func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{Deps: deps}
}

// View is what the seller page renders.
type View struct {
	Session      *models.Session
	Result       *models.Result
	Step         sequencer.Step
	StepNumber   int
	TotalSteps   int
	ConfirmPhone bool
}

// ResultsView is what the results page renders.
type ResultsView struct {
	Session       *models.Session
	Result        *models.Result // nil until the session is completed
	Summary       aggregator.Summary
	Status        models.SessionStatus
	FullyVerified bool
}

// Completed reports whether the results are final.
func (v *ResultsView) Completed() bool {
	return v.Status == models.StatusCompleted
}

// Live reports whether the results can still change. A seller who started
// before the link lapsed may still finish.
func (v *ResultsView) Live() bool {
	return v.Status == models.StatusPending || v.Session.Status == models.StatusInProgress
}

// CreateSession creates a new session for the buyer.
func (f *Service) CreateSession(ctx context.Context, buyer lifecycle.BuyerContact, sellerPhone string, vt models.VerificationType) (*models.Session, error) {
	s, err := f.Lifecycle.CreateSession(ctx, buyer, sellerPhone, vt)
	if err != nil {
		return nil, err
	}
	f.Metrics.IncSessionCreated(string(vt))
	f.Logger.InfoContext(ctx, "verification session created",
		"session_id", s.ID, "type", s.VerificationType, "expires_at", s.ExpiresAt)
	return s, nil
}

// Load returns the seller view of a session. A session whose checks are all
// recorded but whose status was never advanced is completed here.
func (f *Service) Load(ctx context.Context, token string) (*View, error) {
	s, err := f.session(ctx, token)
	if err != nil {
		return nil, err
	}

	r, err := f.result(ctx, s)
	if err != nil {
		return nil, err
	}

	if s.Status == models.StatusInProgress && r != nil && sequencer.CurrentStep(s.VerificationType, r) == sequencer.StepComplete {
		if r, err = f.complete(ctx, s); err != nil {
			return nil, err
		}
	}

	return f.view(s, r), nil
}

// Start moves a pending session to in_progress and creates its result row.
// Starting an in_progress session resumes it; a completed session is returned
// unchanged.
func (f *Service) Start(ctx context.Context, token, sellerPhoneConfirmation string) (*View, error) {
	s, err := f.session(ctx, token)
	if err != nil {
		return nil, err
	}

	if s.IsCompleted() {
		return f.Load(ctx, token)
	}
	if f.Lifecycle.Expiry(s).Expired {
		return nil, fmt.Errorf("start session %s: %w", s.ID, errs.ErrExpired)
	}

	if s.Status == models.StatusPending {
		if err := f.confirmPhone(s, sellerPhoneConfirmation); err != nil {
			return nil, err
		}
		if err := f.Lifecycle.AdvanceStatus(ctx, s, models.StatusInProgress); err != nil {
			return nil, err
		}
		f.Logger.InfoContext(ctx, "verification started", "session_id", s.ID)
	}

	r, err := f.result(ctx, s)
	if err != nil {
		return nil, err
	}
	if r == nil {
		if r, err = f.Aggregator.Create(ctx, s.ID); err != nil {
			return nil, err
		}
	}

	f.publish(s.Token, EventStarted)
	return f.view(s, r), nil
}

func (f *Service) confirmPhone(s *models.Session, confirmation string) error {
	if !f.ConfirmSellerPhone {
		return nil
	}
	if err := sequencer.RequireFields(map[string]string{"seller_phone": confirmation}); err != nil {
		return err
	}
	if lifecycle.NormalizePhone(confirmation) != s.SellerPhone {
		return fmt.Errorf("start session %s: %w", s.ID, errs.ErrPhoneMismatch)
	}
	return nil
}

// SubmitIdentity runs the identity check for the session's current step.
func (f *Service) SubmitIdentity(ctx context.Context, token, idNumber, fullName string) (*View, error) {
	fields := map[string]string{"id_number": idNumber, "full_name": fullName}
	return f.submit(ctx, token, sequencer.StepID, fields, func(ctx context.Context) (aggregator.Outcome, error) {
		out, err := f.Checker.CheckIdentity(ctx, strings.TrimSpace(idNumber), strings.TrimSpace(fullName))
		if err != nil {
			return aggregator.Outcome{}, err
		}
		return aggregator.Outcome{Raw: strings.TrimSpace(idNumber), Verified: out.Verified, Match: out.NameMatch}, nil
	})
}

// SubmitProperty runs the property check for the session's current step.
func (f *Service) SubmitProperty(ctx context.Context, token, reference string) (*View, error) {
	fields := map[string]string{"property_reference": reference}
	return f.submit(ctx, token, sequencer.StepProperty, fields, func(ctx context.Context) (aggregator.Outcome, error) {
		out, err := f.Checker.CheckProperty(ctx, strings.TrimSpace(reference))
		if err != nil {
			return aggregator.Outcome{}, err
		}
		return aggregator.Outcome{Raw: strings.TrimSpace(reference), Verified: out.Verified, Match: out.OwnershipMatch}, nil
	})
}

// SubmitVehicle runs the vehicle check for the session's current step.
func (f *Service) SubmitVehicle(ctx context.Context, token, reference string) (*View, error) {
	fields := map[string]string{"vehicle_reference": reference}
	return f.submit(ctx, token, sequencer.StepVehicle, fields, func(ctx context.Context) (aggregator.Outcome, error) {
		out, err := f.Checker.CheckVehicle(ctx, strings.TrimSpace(reference))
		if err != nil {
			return aggregator.Outcome{}, err
		}
		return aggregator.Outcome{Raw: strings.TrimSpace(reference), Verified: out.Verified, Match: out.OwnershipMatch}, nil
	})
}

func (f *Service) submit(ctx context.Context, token string, step sequencer.Step, fields map[string]string, check func(context.Context) (aggregator.Outcome, error)) (*View, error) {
	s, err := f.session(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.Status != models.StatusInProgress {
		return nil, &errs.TransitionError{From: string(s.Status), To: string(step)}
	}

	r, err := f.result(ctx, s)
	if err != nil {
		return nil, err
	}
	if current := sequencer.CurrentStep(s.VerificationType, r); r == nil || current != step {
		return nil, fmt.Errorf("submit %s for session %s: %w", step, s.ID, errs.ErrIllegalTransition)
	}

	if err := sequencer.RequireFields(fields); err != nil {
		return nil, err
	}

	kind, _ := step.Kind()
	started := time.Now()
	outcome, err := check(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s check for session %s: %w", kind, s.ID, err)
	}
	f.Metrics.ObserveCheck(string(kind), outcome.Match, time.Since(started))

	r, err = f.Aggregator.RecordCheckOutcome(ctx, s.ID, kind, outcome)
	if errors.Is(err, errs.ErrAlreadyFinalized) {
		// A concurrent submission finished the flow first.
		return f.Load(ctx, token)
	}
	if err != nil {
		return nil, err
	}
	f.Logger.InfoContext(ctx, "check recorded",
		"session_id", s.ID, "kind", kind, "verified", outcome.Verified, "match", outcome.Match)

	if sequencer.NextStep(s.VerificationType, step) == sequencer.StepComplete {
		if r, err = f.complete(ctx, s); err != nil {
			return nil, err
		}
	} else {
		f.publish(s.Token, EventProgress)
	}

	return f.stepView(s, r, sequencer.CurrentStep(s.VerificationType, r)), nil
}

// complete finalizes the result, marks the session completed and dispatches
// notifications. A result finalized by an earlier interrupted attempt only
// gets its session advanced. When another request completed the session
// first, nothing is dispatched again.
func (f *Service) complete(ctx context.Context, s *models.Session) (*models.Result, error) {
	r, err := f.Aggregator.Finalize(ctx, s.ID)
	if err != nil && !errors.Is(err, errs.ErrAlreadyFinalized) {
		return nil, err
	}

	err = f.Lifecycle.AdvanceStatus(ctx, s, models.StatusCompleted)
	if errors.Is(err, errs.ErrIllegalTransition) {
		stored, found, fetchErr := f.Lifecycle.FetchByID(ctx, s.ID)
		if fetchErr != nil {
			return nil, fetchErr
		}
		if found && stored.IsCompleted() {
			*s = *stored
			return r, nil
		}
	}
	if err != nil {
		return nil, err
	}

	fully := aggregator.IsFullyVerified(r, s.VerificationType)
	f.Metrics.IncSessionCompleted(string(s.VerificationType), fully)
	f.Logger.InfoContext(ctx, "verification completed", "session_id", s.ID, "fully_verified", fully)

	if f.Notifier != nil {
		f.Notifier.Dispatch(ctx, s, r)
	}
	f.publish(s.Token, EventCompleted)
	return r, nil
}

// Results returns the results page view. It never changes state.
func (f *Service) Results(ctx context.Context, token string) (*ResultsView, error) {
	s, err := f.session(ctx, token)
	if err != nil {
		return nil, err
	}

	v := &ResultsView{
		Session: s,
		Status:  s.DisplayStatus(f.Lifecycle.Now()),
	}
	if s.IsCompleted() {
		if v.Result, err = f.result(ctx, s); err != nil {
			return nil, err
		}
	}
	v.Summary = aggregator.Summarize(v.Result, s.VerificationType)
	v.FullyVerified = v.Summary.FullyVerified
	return v, nil
}

func (f *Service) session(ctx context.Context, token string) (*models.Session, error) {
	s, found, err := f.Lifecycle.FetchByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("session: %w", errs.ErrNotFound)
	}
	return s, nil
}

// result returns the session's result row, or nil before the flow started.
func (f *Service) result(ctx context.Context, s *models.Session) (*models.Result, error) {
	r, found, err := f.Aggregator.Get(ctx, s.ID)
	if err != nil || !found {
		return nil, err
	}
	return r, nil
}

// view is the landing view, which honours expiry.
func (f *Service) view(s *models.Session, r *models.Result) *View {
	return f.stepView(s, r, sequencer.InitialStep(s, r, f.Lifecycle.Now()))
}

func (f *Service) stepView(s *models.Session, r *models.Result, step sequencer.Step) *View {
	n, total := sequencer.StepNumber(s.VerificationType, step)
	return &View{
		Session:      s,
		Result:       r,
		Step:         step,
		StepNumber:   n,
		TotalSteps:   total,
		ConfirmPhone: f.ConfirmSellerPhone,
	}
}

func (f *Service) publish(token, event string) {
	if f.Events != nil {
		f.Events.Publish(token, sse.FormatEvent(event, event))
	}
}
