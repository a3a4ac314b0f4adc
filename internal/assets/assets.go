// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

//go:build !dev

// Package assets provides embedded static assets with content-hashed filenames.
package assets

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

//go:embed static
var staticFS embed.FS

// stylesheet is the main CSS file relative to static/.
const stylesheet = "css/styles.css"

var cssPath string

func init() {
	// Defaults (development fallback)
	cssPath = "/static/" + stylesheet

	data, err := staticFS.ReadFile("static/" + stylesheet)
	if err != nil {
		slog.Error("failed to read embedded stylesheet", "error", err)
		return
	}
	cssPath = "/static/" + HashedName(stylesheet, data)

	slog.Debug("loaded asset paths", "css", cssPath)
}

// HashedName inserts the first 8 hex characters of the content's SHA-256
// before the extension: css/styles.css becomes css/styles.1a2b3c4d.css.
func HashedName(name string, data []byte) string {
	sum := sha256.Sum256(data)
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "." + hex.EncodeToString(sum[:4]) + ext
}

// CSSPath returns the path to the main CSS file.
func CSSPath() string {
	return cssPath
}

// FileServer returns an http.Handler that serves embedded static files. It
// expects paths relative to /static and resolves the hashed stylesheet name
// to the embedded file.
func FileServer() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("failed to create sub filesystem: " + err.Error())
	}
	files := http.FileServer(http.FS(sub))
	hashed := strings.TrimPrefix(cssPath, "/static")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == hashed {
			r = r.Clone(r.Context())
			r.URL.Path = "/" + stylesheet
		}
		files.ServeHTTP(w, r)
	})
}
