// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"codeberg.org/trustlink/trustlink/internal/assets"
	"codeberg.org/trustlink/trustlink/internal/config"
	"codeberg.org/trustlink/trustlink/internal/i18n"
	"codeberg.org/trustlink/trustlink/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionLink = regexp.MustCompile(`/verify/([A-Za-z0-9]{32})`)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	require.NoError(t, i18n.Init())
	_, repo := testutil.NewTestDB(t)

	cfg := &config.Config{
		Server: config.ServerConfig{
			BaseURL:     "http://localhost:8080",
			MaxBodySize: 1,
		},
	}
	srv, err := New(cfg, repo, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(srv.Notifier.Wait)
	return srv
}

func (s *Server) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// csrf fetches the home page and returns the CSRF cookie and token.
func (s *Server) csrf(t *testing.T) (*http.Cookie, string) {
	t.Helper()
	rec := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "_csrf" {
			return c, c.Value
		}
	}
	t.Fatal("no csrf cookie")
	return nil, ""
}

func (s *Server) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	cookie, token := s.csrf(t)
	form.Set("_csrf", token)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	req.AddCookie(cookie)
	return s.do(req)
}

func TestServer_Home(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), assets.CSSPath())
	assert.Contains(t, rec.Body.String(), `name="_csrf"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Stylesheet(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, assets.CSSPath(), nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get("Cache-Control"))
}

func TestServer_NotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "The page you are looking for does not exist.")
}

func TestServer_PostWithoutCSRFIsRejected(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader("buyer_phone=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := srv.do(req)

	assert.Contains(t, []int{http.StatusBadRequest, http.StatusForbidden}, rec.Code)
}

func TestServer_VerificationRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.post(t, "/sessions", url.Values{
		"buyer_phone":       {"0821234567"},
		"seller_phone":      {"0827654321"},
		"verification_type": {"idNumber"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	match := sessionLink.FindStringSubmatch(rec.Body.String())
	require.Len(t, match, 2)
	token := match[1]

	rec = srv.post(t, "/verify/"+token+"/start", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `name="id_number"`)

	rec = srv.post(t, "/verify/"+token+"/id", url.Values{
		"id_number": {"8001015009087"},
		"full_name": {"John Smith"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Verification complete")

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/results/"+token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "status-completed")

	srv.Notifier.Wait()
	rec = srv.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `trustlink_sessions_created_total{type="idNumber"} 1`)
	assert.Contains(t, body, `trustlink_notifications_total{channel="sms",result="sent"} 2`)
	assert.Contains(t, body, "trustlink_event_streams 0")
}

func TestServer_TrailingSlashRedirects(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/health/", nil))

	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/health", rec.Header().Get("Location"))
}
