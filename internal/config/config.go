// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server       ServerConfig
	Log          LogConfig
	Database     DatabaseConfig
	TLS          TLSConfig
	Verification VerificationConfig
	SMTP         SMTPConfig
	SMS          SMSConfig
}

type TLSConfig struct {
	Mode     string // auto, manual, off
	CertFile string // Path to certificate file
	KeyFile  string // Path to private key file
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string // SQLite path or postgres:// URL
}

type VerificationConfig struct { //nolint:govet // fieldalignment not critical for config structs
	SessionTTL         time.Duration
	ConfirmSellerPhone bool // Seller must re-enter their phone number before starting
	IdentityDelay      time.Duration
	PropertyDelay      time.Duration
	VehicleDelay       time.Duration
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string // Empty disables email delivery
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// Enabled reports whether email delivery is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type SMSConfig struct {
	BaseURL    string // Empty uses api.twilio.com
	AccountSID string // Empty disables SMS delivery
	AuthToken  string
	From       string
}

// Enabled reports whether SMS delivery is configured.
func (c SMSConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != ""
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		TLS: TLSConfig{
			Mode:     cmd.String("tls-mode"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
		Verification: VerificationConfig{
			SessionTTL:         cmd.Duration("session-ttl"),
			ConfirmSellerPhone: cmd.Bool("confirm-seller-phone"),
			IdentityDelay:      cmd.Duration("identity-check-delay"),
			PropertyDelay:      cmd.Duration("property-check-delay"),
			VehicleDelay:       cmd.Duration("vehicle-check-delay"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		SMS: SMSConfig{
			BaseURL:    cmd.String("sms-base-url"),
			AccountSID: cmd.String("sms-account-sid"),
			AuthToken:  cmd.String("sms-auth-token"),
			From:       cmd.String("sms-from"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}
	cfg.Server.BaseURL = strings.TrimSuffix(cfg.Server.BaseURL, "/")

	return cfg
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	scheme := "http"
	if cfg.TLS.Enabled() {
		scheme = "https"
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// Enabled reports whether the server should terminate TLS itself.
func (c TLSConfig) Enabled() bool {
	switch strings.ToLower(c.Mode) {
	case "off":
		return false
	case "manual":
		return true
	default: // "auto" or empty
		return c.CertFile != "" && c.KeyFile != ""
	}
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL used in shared links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/trustlink.db",
			Usage:   "Database DSN (SQLite path or postgres:// URL)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "auto",
			Usage:   "TLS mode (auto, manual, off)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_MODE"), toml.TOML("tls.mode", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_FILE"), toml.TOML("tls.cert_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_KEY_FILE"), toml.TOML("tls.key_file", configFile)),
		},
		// Verification flags
		&cli.DurationFlag{
			Name:    "session-ttl",
			Value:   30 * time.Minute,
			Usage:   "How long a verification link stays valid",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_TTL"), toml.TOML("verification.session_ttl", configFile)),
		},
		&cli.BoolFlag{
			Name:    "confirm-seller-phone",
			Usage:   "Require the seller to confirm their phone number before starting",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CONFIRM_SELLER_PHONE"), toml.TOML("verification.confirm_seller_phone", configFile)),
		},
		&cli.DurationFlag{
			Name:    "identity-check-delay",
			Value:   1000 * time.Millisecond,
			Usage:   "Simulated identity registry latency",
			Sources: cli.NewValueSourceChain(cli.EnvVar("IDENTITY_CHECK_DELAY"), toml.TOML("verification.identity_delay", configFile)),
		},
		&cli.DurationFlag{
			Name:    "property-check-delay",
			Value:   1200 * time.Millisecond,
			Usage:   "Simulated deeds registry latency",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PROPERTY_CHECK_DELAY"), toml.TOML("verification.property_delay", configFile)),
		},
		&cli.DurationFlag{
			Name:    "vehicle-check-delay",
			Value:   1100 * time.Millisecond,
			Usage:   "Simulated vehicle registry latency",
			Sources: cli.NewValueSourceChain(cli.EnvVar("VEHICLE_CHECK_DELAY"), toml.TOML("verification.vehicle_delay", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host (empty disables email)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "noreply@trustlink.local",
			Usage:   "Sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "TrustLink",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		// SMS flags
		&cli.StringFlag{
			Name:    "sms-base-url",
			Usage:   "Send Twilio API calls to this host instead of api.twilio.com",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMS_BASE_URL"), toml.TOML("sms.base_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "sms-account-sid",
			Usage:   "SMS account SID (empty disables SMS)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMS_ACCOUNT_SID"), toml.TOML("sms.account_sid", configFile)),
		},
		&cli.StringFlag{
			Name:    "sms-auth-token",
			Usage:   "SMS auth token",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMS_AUTH_TOKEN"), toml.TOML("sms.auth_token", configFile)),
		},
		&cli.StringFlag{
			Name:    "sms-from",
			Usage:   "SMS sender number",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMS_FROM"), toml.TOML("sms.from", configFile)),
		},
	}
}
