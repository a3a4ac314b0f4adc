// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers serves the buyer, seller and results pages.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"codeberg.org/trustlink/trustlink/internal/errs"
	"codeberg.org/trustlink/trustlink/internal/models"
	"codeberg.org/trustlink/trustlink/internal/services/flow"
	"codeberg.org/trustlink/trustlink/internal/services/lifecycle"
	"codeberg.org/trustlink/trustlink/internal/sse"
	"codeberg.org/trustlink/trustlink/internal/templates"
	"github.com/labstack/echo/v4"
)

// DefaultHeartbeat is the interval of SSE keep-alive comments.
const DefaultHeartbeat = 30 * time.Second

// Pinger checks that the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	flow      *flow.Service
	store     Pinger
	hub       *sse.Hub
	baseURL   string
	heartbeat time.Duration
}

// New creates a new Handlers instance.
func New(f *flow.Service, store Pinger, hub *sse.Hub, baseURL string) *Handlers {
	return &Handlers{
		flow:      f,
		store:     store,
		hub:       hub,
		baseURL:   baseURL,
		heartbeat: DefaultHeartbeat,
	}
}

// SetHeartbeat overrides DefaultHeartbeat.
func (h *Handlers) SetHeartbeat(d time.Duration) {
	h.heartbeat = d
}

// Health reports whether the store answers.
func (h *Handlers) Health(c echo.Context) error {
	if h.store != nil {
		if err := h.store.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Home renders the buyer request form.
func (h *Handlers) Home(c echo.Context) error {
	return page(c, http.StatusOK, "buyer_title", templates.BuyerPage(templates.BuyerForm{}))
}

// CreateSession creates a session from the buyer form and shows the link to
// share with the seller.
func (h *Handlers) CreateSession(c echo.Context) error {
	form := templates.BuyerForm{
		BuyerPhone:       strings.TrimSpace(c.FormValue("buyer_phone")),
		BuyerEmail:       strings.TrimSpace(c.FormValue("buyer_email")),
		SellerPhone:      strings.TrimSpace(c.FormValue("seller_phone")),
		VerificationType: models.VerificationType(c.FormValue("verification_type")),
	}

	s, err := h.flow.CreateSession(c.Request().Context(),
		lifecycle.BuyerContact{Phone: form.BuyerPhone, Email: form.BuyerEmail},
		form.SellerPhone, form.VerificationType)
	if errors.Is(err, errs.ErrValidation) {
		form.ErrorID = errs.MessageID(err)
		return page(c, http.StatusUnprocessableEntity, "buyer_title", templates.BuyerPage(form))
	}
	if err != nil {
		return RenderError(c, err)
	}

	return page(c, http.StatusCreated, "link_title", templates.LinkPage(templates.LinkView{
		Session:    s,
		VerifyURL:  lifecycle.VerifyURL(h.baseURL, s.Token),
		ResultsURL: lifecycle.ResultsURL(h.baseURL, s.Token),
	}))
}

// token returns the path token, rejecting malformed values before they
// reach the store.
func token(c echo.Context) (string, error) {
	t := c.Param("token")
	if !lifecycle.ValidTokenFormat(t) {
		return "", errs.ErrNotFound
	}
	return t, nil
}
