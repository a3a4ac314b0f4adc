// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"

	"codeberg.org/trustlink/trustlink/internal/ctxkeys"
	"github.com/labstack/echo/v4"
)

// assetsToContext populates request.Context with asset paths for template access.
func assetsToContext(assets *Assets) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), ctxkeys.CSSPath{}, assets.CSSPath)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
