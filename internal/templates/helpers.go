// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate

import (
	"context"
	"time"

	"codeberg.org/trustlink/trustlink/internal/ctxkeys"
	"codeberg.org/trustlink/trustlink/internal/i18n"
	"codeberg.org/trustlink/trustlink/internal/models"
	"codeberg.org/trustlink/trustlink/internal/services/aggregator"
	"github.com/a-h/templ"
)

// CSRFToken returns the CSRF token from the context.
func CSRFToken(ctx context.Context) string {
	if token, ok := ctx.Value(ctxkeys.CSRFToken{}).(string); ok {
		return token
	}
	return ""
}

// csrfHeaders is the hx-headers value that sends the CSRF token with every
// htmx request.
func csrfHeaders(ctx context.Context) string {
	headers, _ := templ.JSONString(map[string]string{"X-CSRF-Token": CSRFToken(ctx)})
	return headers
}

// T translates a message by ID.
func T(ctx context.Context, messageID string) string {
	return i18n.T(ctx, messageID)
}

// TData translates a message with template data.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	return i18n.TData(ctx, messageID, data)
}

// Locale returns the current locale.
func Locale(ctx context.Context) string {
	return i18n.GetLocale(ctx)
}

// CSSPath returns the path to the hashed CSS file.
func CSSPath(ctx context.Context) string {
	if path, ok := ctx.Value(ctxkeys.CSSPath{}).(string); ok {
		return path
	}
	return "/static/css/styles.css"
}

// TypeLabel names a verification type.
func TypeLabel(ctx context.Context, vt models.VerificationType) string {
	return T(ctx, "type_"+string(vt))
}

// CheckLabel names a check.
func CheckLabel(ctx context.Context, kind models.CheckKind) string {
	return T(ctx, "check_"+string(kind))
}

// StatusLabel names a session status.
func StatusLabel(ctx context.Context, status models.SessionStatus) string {
	return T(ctx, "status_"+string(status))
}

// OutcomeLabel describes the outcome of one check.
func OutcomeLabel(ctx context.Context, c aggregator.CheckSummary) string {
	return T(ctx, "outcome_"+outcome(c))
}

func outcome(c aggregator.CheckSummary) string {
	switch {
	case !c.Required:
		return "skipped"
	case c.Passed:
		return "verified"
	case c.Status == models.CheckPending:
		return "pending"
	default:
		return "not_verified"
	}
}

// FormatTime renders a timestamp for display.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
