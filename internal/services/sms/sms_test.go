// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package sms_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/trustlink/trustlink/internal/config"
	"codeberg.org/trustlink/trustlink/internal/services/sms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twclient "github.com/twilio/twilio-go/client"
)

func newClient(t *testing.T, handler http.HandlerFunc) *sms.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := sms.NewClient(config.SMSConfig{
		BaseURL:    srv.URL + "/",
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "+15005550006",
	}, srv.Client())
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := sms.NewClient(config.SMSConfig{From: "+1"}, nil)
	require.Error(t, err)

	_, err = sms.NewClient(config.SMSConfig{AccountSID: "AC1", AuthToken: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from number")
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := sms.NewClient(config.SMSConfig{
		BaseURL:    "not a url",
		AccountSID: "AC1",
		AuthToken:  "x",
		From:       "+1",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL")
}

func TestSend(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "+27821234567", r.FormValue("To"))
		assert.Equal(t, "+15005550006", r.FormValue("From"))
		assert.Equal(t, "TrustLink results", r.FormValue("Body"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued","to":"+27821234567"}`))
	})

	msg, err := client.Send(context.Background(), "0821234567", "TrustLink results")

	require.NoError(t, err)
	assert.Equal(t, "SM1", msg.SID)
	assert.Equal(t, "queued", msg.Status)
}

func TestSend_APIError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21604,"message":"A 'To' phone number is required.","status":400}`))
	})

	err := client.SendSMS(context.Background(), "", "hi")

	var apiErr *twclient.TwilioRestError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 21604, apiErr.Code)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestSend_ServerError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.SendSMS(context.Background(), "0821234567", "hi")

	require.Error(t, err)
}

func TestSend_CanceledContext(t *testing.T) {
	called := false
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.SendSMS(ctx, "0821234567", "hi")

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "+27821234567", sms.FormatNumber("0821234567", "27"))
	assert.Equal(t, "+27821234567", sms.FormatNumber("27821234567", "27"))
	assert.Equal(t, "+15005550006", sms.FormatNumber("+15005550006", "27"))
}
