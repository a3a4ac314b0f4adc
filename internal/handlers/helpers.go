// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"codeberg.org/trustlink/trustlink/internal/htmx"
	"codeberg.org/trustlink/trustlink/internal/templates"
	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render renders a templ component with the given status code.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	buf := templ.GetBuffer()
	defer templ.ReleaseBuffer(buf)

	if err := component.Render(c.Request().Context(), buf); err != nil {
		return err
	}

	return c.HTML(statusCode, buf.String())
}

// page renders body alone for htmx swaps and inside the layout otherwise.
func page(c echo.Context, statusCode int, titleID string, body templ.Component) error {
	if htmx.ParseRequest(c.Request()).Partial() {
		return Render(c, statusCode, body)
	}
	title := templates.T(c.Request().Context(), titleID)
	return Render(c, statusCode, templates.Layout(title, body))
}
