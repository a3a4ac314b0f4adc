// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

//go:build dev

// Package assets provides static asset serving for development mode.
// In development, assets are served directly from the filesystem without hashing.
package assets

import (
	"net/http"
)

// CSSPath returns the path to the main CSS file (unhashed in dev mode).
func CSSPath() string {
	return "/static/css/styles.dev.css"
}

// FileServer returns an http.Handler that serves static files from the
// filesystem. The .dev. name maps to the real stylesheet so browsers never
// cache it.
func FileServer() http.Handler {
	files := http.FileServer(http.Dir("internal/assets/static"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/css/styles.dev.css" {
			r = r.Clone(r.Context())
			r.URL.Path = "/css/styles.css"
		}
		files.ServeHTTP(w, r)
	})
}
