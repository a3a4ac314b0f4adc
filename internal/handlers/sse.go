// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"codeberg.org/trustlink/trustlink/internal/sse"
	"github.com/labstack/echo/v4"
)

// Events streams status changes of a session to its results page.
func (h *Handlers) Events(c echo.Context) error {
	t, err := token(c)
	if err != nil {
		return RenderError(c, err)
	}
	ctx := c.Request().Context()

	// Unknown tokens are rejected before the stream opens.
	if _, err := h.flow.Results(ctx, t); err != nil {
		return RenderError(c, err)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	ch := h.hub.Subscribe(t)
	defer h.hub.Unsubscribe(t, ch)

	if _, err := w.Write([]byte(sse.Connected)); err != nil {
		return nil
	}
	w.Flush()

	// Heartbeat ticker to keep connection alive through proxies
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Write([]byte(sse.Heartbeat)); err != nil {
				return nil // Client disconnected
			}
			w.Flush()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := w.Write([]byte(msg)); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
