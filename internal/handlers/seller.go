// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"codeberg.org/trustlink/trustlink/internal/errs"
	"codeberg.org/trustlink/trustlink/internal/htmx"
	"codeberg.org/trustlink/trustlink/internal/services/flow"
	"codeberg.org/trustlink/trustlink/internal/templates"
	"github.com/labstack/echo/v4"
)

// Seller renders the seller flow at the step the session is on.
func (h *Handlers) Seller(c echo.Context) error {
	t, err := token(c)
	if err != nil {
		return RenderError(c, err)
	}
	v, err := h.flow.Load(c.Request().Context(), t)
	if err != nil {
		return RenderError(c, err)
	}
	return page(c, http.StatusOK, "seller_title", templates.SellerPage(v, ""))
}

// Start begins or resumes the seller flow.
func (h *Handlers) Start(c echo.Context) error {
	return h.step(c, func(t string) (*flow.View, error) {
		return h.flow.Start(c.Request().Context(), t, c.FormValue("seller_phone"))
	})
}

// SubmitID runs the identity check.
func (h *Handlers) SubmitID(c echo.Context) error {
	return h.step(c, func(t string) (*flow.View, error) {
		return h.flow.SubmitIdentity(c.Request().Context(), t, c.FormValue("id_number"), c.FormValue("full_name"))
	})
}

// SubmitProperty runs the property ownership check.
func (h *Handlers) SubmitProperty(c echo.Context) error {
	return h.step(c, func(t string) (*flow.View, error) {
		return h.flow.SubmitProperty(c.Request().Context(), t, c.FormValue("property_reference"))
	})
}

// SubmitVehicle runs the vehicle ownership check.
func (h *Handlers) SubmitVehicle(c echo.Context) error {
	return h.step(c, func(t string) (*flow.View, error) {
		return h.flow.SubmitVehicle(c.Request().Context(), t, c.FormValue("vehicle_reference"))
	})
}

// step runs one flow action. htmx requests get the next step as a fragment;
// plain form posts are redirected back to the seller page. Errors the seller
// can act on re-render the current step with a message.
func (h *Handlers) step(c echo.Context, action func(token string) (*flow.View, error)) error {
	t, err := token(c)
	if err != nil {
		return RenderError(c, err)
	}

	v, err := action(t)
	if err != nil {
		return h.stepError(c, t, err)
	}

	if !htmx.ParseRequest(c.Request()).Partial() {
		return c.Redirect(http.StatusSeeOther, "/verify/"+t)
	}
	return Render(c, http.StatusOK, templates.SellerPage(v, ""))
}

func (h *Handlers) stepError(c echo.Context, t string, err error) error {
	if errors.Is(err, errs.ErrNotFound) || StatusCode(err) == http.StatusInternalServerError {
		return RenderError(c, err)
	}

	v, loadErr := h.flow.Load(c.Request().Context(), t)
	if loadErr != nil {
		return RenderError(c, loadErr)
	}
	return page(c, StatusCode(err), "seller_title", templates.SellerPage(v, errs.MessageID(err)))
}
