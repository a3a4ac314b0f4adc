// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

// Package notify tells the buyer and the seller about a completed
// verification. The buyer gets an email when an address is known and an SMS
// otherwise; the seller gets an SMS.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"codeberg.org/trustlink/trustlink/internal/i18n"
	"codeberg.org/trustlink/trustlink/internal/metrics"
	"codeberg.org/trustlink/trustlink/internal/models"
	"codeberg.org/trustlink/trustlink/internal/services/aggregator"
	"codeberg.org/trustlink/trustlink/internal/services/lifecycle"
	"codeberg.org/trustlink/trustlink/internal/templates"
)

// DefaultTimeout bounds one background dispatch.
const DefaultTimeout = 30 * time.Second

// Channels as reported to metrics.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// EmailSender delivers an HTML email with a plain-text alternative.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html, text string) error
}

// SMSSender delivers a text message to a stored phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// LogSender stands in for a channel that is not configured. It logs the
// message and reports success.
type LogSender struct {
	Logger *slog.Logger
}

// SendEmail logs the email.
func (l LogSender) SendEmail(ctx context.Context, to, subject, _, text string) error {
	l.logger().InfoContext(ctx, "email not configured, logging message",
		"to", to, "subject", subject, "body", text)
	return nil
}

// SendSMS logs the text message.
func (l LogSender) SendSMS(ctx context.Context, to, body string) error {
	l.logger().InfoContext(ctx, "sms not configured, logging message", "to", to, "body", body)
	return nil
}

func (l LogSender) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

// Dispatcher sends completion notifications.
type Dispatcher struct {
	email   EmailSender
	sms     SMSSender
	metrics *metrics.Metrics
	logger  *slog.Logger
	baseURL string
	timeout time.Duration
	wg      sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(n *Dispatcher) { n.timeout = d }
}

// WithMetrics records every delivery attempt.
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Dispatcher) { n.metrics = m }
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *slog.Logger) Option {
	return func(n *Dispatcher) { n.logger = l }
}

// NewDispatcher creates a dispatcher. A nil sender is replaced by a LogSender.
func NewDispatcher(email EmailSender, sms SMSSender, baseURL string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		email:   email,
		sms:     sms,
		baseURL: baseURL,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.email == nil {
		d.email = LogSender{Logger: d.logger}
	}
	if d.sms == nil {
		d.sms = LogSender{Logger: d.logger}
	}
	return d
}

// Dispatch sends both notifications in the background. The request context
// only contributes its values, so delivery survives the end of the request.
func (d *Dispatcher) Dispatch(ctx context.Context, s *models.Session, r *models.Result) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()

		if err := d.SendResultsSummary(ctx, s, r); err != nil {
			d.logger.ErrorContext(ctx, "buyer notification failed", "session_id", s.ID, "error", err)
		}
		if err := d.SendSellerUpdate(ctx, s, r); err != nil {
			d.logger.ErrorContext(ctx, "seller notification failed", "session_id", s.ID, "error", err)
		}
	}()
}

// Wait blocks until all dispatched notifications have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// SendResultsSummary sends the results to the buyer in the language they
// created the session in. Email is tried first when the buyer left an
// address; SMS is the fallback.
func (d *Dispatcher) SendResultsSummary(ctx context.Context, s *models.Session, r *models.Result) error {
	ctx = i18n.ForLocale(ctx, s.BuyerLocale)
	summary := aggregator.Summarize(r, s.VerificationType)
	link := lifecycle.ResultsURL(d.baseURL, s.Token)
	text := SummaryText(ctx, s, summary, link)

	if s.BuyerEmail != "" {
		err := d.sendEmail(ctx, s, summary, link, text)
		d.metrics.IncNotification(ChannelEmail, err)
		if err == nil {
			return nil
		}
		d.logger.WarnContext(ctx, "results email failed, falling back to sms",
			"session_id", s.ID, "error", err)
	}

	err := d.sms.SendSMS(ctx, s.BuyerPhone, text)
	d.metrics.IncNotification(ChannelSMS, err)
	if err != nil {
		return fmt.Errorf("send results to buyer of session %s: %w", s.ID, err)
	}
	return nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, s *models.Session, summary aggregator.Summary, link, text string) error {
	var buf bytes.Buffer
	if err := templates.ResultsEmail(s, summary, link).Render(ctx, &buf); err != nil {
		return fmt.Errorf("render results email: %w", err)
	}
	subject := templates.T(ctx, "email_results_subject")
	return d.email.SendEmail(ctx, s.BuyerEmail, subject, buf.String(), text)
}

// SendSellerUpdate tells the seller the flow finished. There is no seller
// email address, so this always goes by SMS.
func (d *Dispatcher) SendSellerUpdate(ctx context.Context, s *models.Session, r *models.Result) error {
	if s.SellerPhone == "" {
		return errors.New("session has no seller phone")
	}
	err := d.sms.SendSMS(ctx, s.SellerPhone, SellerText(ctx, s, r))
	d.metrics.IncNotification(ChannelSMS, err)
	if err != nil {
		return fmt.Errorf("send update to seller of session %s: %w", s.ID, err)
	}
	return nil
}

// SummaryText is the plain-text results summary.
func SummaryText(ctx context.Context, s *models.Session, summary aggregator.Summary, link string) string {
	var b strings.Builder
	b.WriteString(templates.T(ctx, "sms_results_heading"))
	b.WriteString("\n")
	b.WriteString(templates.TypeLabel(ctx, s.VerificationType))
	b.WriteString("\n")
	for _, c := range summary.Required() {
		fmt.Fprintf(&b, "%s: %s\n", templates.CheckLabel(ctx, c.Kind), templates.OutcomeLabel(ctx, c))
		if c.Kind == models.CheckIdentity && c.Match != nil && !*c.Match {
			b.WriteString(templates.T(ctx, "name_mismatch"))
			b.WriteString("\n")
		}
	}
	b.WriteString(verdict(ctx, summary.FullyVerified))
	b.WriteString("\n")
	b.WriteString(templates.TData(ctx, "sms_view_results", map[string]any{"URL": link}))
	return b.String()
}

// SellerText is the SMS sent to the seller on completion: one line per
// required check followed by the overall verdict.
func SellerText(ctx context.Context, s *models.Session, r *models.Result) string {
	summary := aggregator.Summarize(r, s.VerificationType)

	var b strings.Builder
	b.WriteString(templates.TData(ctx, "sms_seller_update", map[string]any{
		"Type": templates.TypeLabel(ctx, s.VerificationType),
	}))
	b.WriteString("\n")
	for _, c := range summary.Required() {
		fmt.Fprintf(&b, "%s: %s\n", templates.CheckLabel(ctx, c.Kind), templates.OutcomeLabel(ctx, c))
	}
	b.WriteString(verdict(ctx, summary.FullyVerified))
	return b.String()
}

func verdict(ctx context.Context, fullyVerified bool) string {
	if fullyVerified {
		return templates.T(ctx, "results_fully_verified")
	}
	return templates.T(ctx, "results_not_fully_verified")
}
