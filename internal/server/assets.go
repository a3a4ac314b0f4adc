// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"log/slog"

	"codeberg.org/trustlink/trustlink/internal/assets"
)

// Assets holds the URL paths templates link static files under.
type Assets struct {
	CSSPath string
}

// findAssets returns asset paths from the embedded files.
func findAssets() *Assets {
	a := &Assets{
		CSSPath: assets.CSSPath(),
	}
	slog.Debug("assets loaded", "css", a.CSSPath)
	return a
}
