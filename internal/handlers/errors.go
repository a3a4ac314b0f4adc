// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/trustlink/trustlink/internal/errs"
	"codeberg.org/trustlink/trustlink/internal/templates"
	"github.com/labstack/echo/v4"
)

// StatusCode maps a service error to an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrPhoneMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrExpired):
		return http.StatusGone
	case errors.Is(err, errs.ErrIllegalTransition), errors.Is(err, errs.ErrAlreadyFinalized):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RenderError renders the error page for a service error. Unexpected errors
// are logged; their details never reach the client.
func RenderError(c echo.Context, err error) error {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method, "path", c.Path(), "error", err)
	}
	return page(c, code, "error_title", templates.ErrorPage(code, errs.MessageID(err)))
}

// NotFound renders the 404 error page.
func NotFound(c echo.Context) error {
	return page(c, http.StatusNotFound, "error_title", templates.ErrorPage(http.StatusNotFound, "error_not_found"))
}

// HTTPErrorHandler renders echo's own errors, such as unknown routes or a
// rejected CSRF token, with the error page.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	} else {
		slog.ErrorContext(c.Request().Context(), "unhandled error", "path", c.Path(), "error", err)
	}

	messageID := "error_generic"
	if code == http.StatusNotFound || code == http.StatusMethodNotAllowed {
		messageID = "error_not_found"
	}

	if renderErr := page(c, code, "error_title", templates.ErrorPage(code, messageID)); renderErr != nil {
		slog.ErrorContext(c.Request().Context(), "failed to render error page", "error", renderErr)
	}
}
