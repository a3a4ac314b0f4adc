// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

// Package sms sends text messages through the Twilio Messages API.
package sms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/trustlink/trustlink/internal/config"
	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// DefaultCountryCode is prefixed to national numbers starting with 0.
const DefaultCountryCode = "27"

// Message is the subset of the created message resource we read back.
type Message struct {
	SID    string
	Status string
}

// Client sends messages from a fixed sender number.
type Client struct {
	api         *twilio.RestClient
	from        string
	countryCode string
}

// NewClient creates an SMS client. A nil httpClient uses a client with a
// 10 second timeout. A non-empty cfg.BaseURL sends API calls to that host
// instead of api.twilio.com.
func NewClient(cfg config.SMSConfig, httpClient *http.Client) (*Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("SMS account SID and auth token are required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMS from number is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.BaseURL != "" {
		rebased, err := rebaseClient(httpClient, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		httpClient = rebased
	}

	base := &twclient.Client{
		Credentials: twclient.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  httpClient,
	}
	base.SetAccountSid(cfg.AccountSID)

	return &Client{
		api:         twilio.NewRestClientWithParams(twilio.ClientParams{Client: base}),
		from:        cfg.From,
		countryCode: DefaultCountryCode,
	}, nil
}

// SendSMS sends body to the given phone number.
func (c *Client) SendSMS(ctx context.Context, to, body string) error {
	_, err := c.Send(ctx, to, body)
	return err
}

// Send sends body to the given phone number and returns the created message.
// The Twilio client takes no context, so only a context that is already done
// stops the call; the HTTP client timeout bounds the rest.
func (c *Client) Send(ctx context.Context, to, body string) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sending sms: %w", err)
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(FormatNumber(to, c.countryCode))
	params.SetFrom(c.from)
	params.SetBody(body)

	resp, err := c.api.Api.CreateMessage(params)
	if err != nil {
		return nil, fmt.Errorf("sending sms: %w", err)
	}
	return &Message{SID: deref(resp.Sid), Status: deref(resp.Status)}, nil
}

// FormatNumber turns a stored digit-only number into E.164. National numbers
// with a leading 0 get countryCode instead.
func FormatNumber(digits, countryCode string) string {
	digits = strings.TrimPrefix(digits, "+")
	if strings.HasPrefix(digits, "0") {
		digits = countryCode + strings.TrimPrefix(digits, "0")
	}
	return "+" + digits
}

func deref[T ~string](p *T) string {
	if p == nil {
		return ""
	}
	return string(*p)
}

// rebaseClient returns a copy of hc whose requests go to baseURL, keeping
// the API path.
func rebaseClient(hc *http.Client, baseURL string) (*http.Client, error) {
	target, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid SMS base URL %q", baseURL)
	}

	next := hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	rebased := *hc
	rebased.Transport = &rebaseTransport{target: target, next: next}
	return &rebased, nil
}

type rebaseTransport struct {
	target *url.URL
	next   http.RoundTripper
}

func (t *rebaseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.URL.Path = t.target.Path + req.URL.Path
	out.Host = t.target.Host
	return t.next.RoundTrip(out)
}
