// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/trustlink/trustlink/internal/templates"
	"github.com/labstack/echo/v4"
)

// Results renders the results page. It never changes state.
func (h *Handlers) Results(c echo.Context) error {
	t, err := token(c)
	if err != nil {
		return RenderError(c, err)
	}
	v, err := h.flow.Results(c.Request().Context(), t)
	if err != nil {
		return RenderError(c, err)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return page(c, http.StatusOK, "results_title", templates.ResultsPage(v))
}
