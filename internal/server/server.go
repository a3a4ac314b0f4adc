// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires the services into an Echo application and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/trustlink/trustlink/internal/assets"
	"codeberg.org/trustlink/trustlink/internal/config"
	"codeberg.org/trustlink/trustlink/internal/database"
	"codeberg.org/trustlink/trustlink/internal/handlers"
	"codeberg.org/trustlink/trustlink/internal/i18n"
	"codeberg.org/trustlink/trustlink/internal/metrics"
	"codeberg.org/trustlink/trustlink/internal/repository"
	"codeberg.org/trustlink/trustlink/internal/services/aggregator"
	"codeberg.org/trustlink/trustlink/internal/services/checker"
	"codeberg.org/trustlink/trustlink/internal/services/email"
	"codeberg.org/trustlink/trustlink/internal/services/flow"
	"codeberg.org/trustlink/trustlink/internal/services/lifecycle"
	"codeberg.org/trustlink/trustlink/internal/services/notify"
	"codeberg.org/trustlink/trustlink/internal/services/sms"
	"codeberg.org/trustlink/trustlink/internal/sse"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
)

// smsTimeout bounds a single SMS API call.
const smsTimeout = 10 * time.Second

// Server is the assembled application.
type Server struct {
	Echo     *echo.Echo
	Notifier *notify.Dispatcher
	Hub      *sse.Hub

	cfg *config.Config
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database (migrations run on open)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := New(cfg, repository.New(db), reg)
	if err != nil {
		return err
	}

	return srv.startWithGracefulShutdown(ctx)
}

// New builds the application on repo and registers its metrics with reg.
func New(cfg *config.Config, repo *repository.Repository, reg *prometheus.Registry) (*Server, error) {
	m := metrics.New(reg)

	emailSender, smsSender, err := senders(cfg)
	if err != nil {
		return nil, err
	}
	notifier := notify.NewDispatcher(emailSender, smsSender, cfg.Server.BaseURL,
		notify.WithMetrics(m), notify.WithLogger(slog.Default()))

	hub := sse.NewHub()
	metrics.RegisterLiveStreams(reg, hub)
	f := flow.New(flow.Deps{
		Lifecycle:  lifecycle.NewManager(repo, lifecycle.WithTTL(cfg.Verification.SessionTTL)),
		Aggregator: aggregator.New(repo, nil),
		Checker: checker.NewSimulator(checker.Delays{
			Identity: cfg.Verification.IdentityDelay,
			Property: cfg.Verification.PropertyDelay,
			Vehicle:  cfg.Verification.VehicleDelay,
		}, nil),
		Notifier:           notifier,
		Events:             hub,
		Metrics:            m,
		Logger:             slog.Default(),
		ConfirmSellerPhone: cfg.Verification.ConfirmSellerPhone,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	// Middleware
	setupMiddleware(e, cfg, findAssets())

	// Routes
	h := handlers.New(f, repo, hub, cfg.Server.BaseURL)
	setupRoutes(e, h, reg)

	return &Server{Echo: e, Notifier: notifier, Hub: hub, cfg: cfg}, nil
}

// senders returns the configured delivery channels. Unconfigured channels
// are nil, which the dispatcher replaces with log output.
func senders(cfg *config.Config) (notify.EmailSender, notify.SMSSender, error) {
	var emailSender notify.EmailSender
	if cfg.SMTP.Enabled() {
		svc, err := email.NewService(&cfg.SMTP)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to configure email: %w", err)
		}
		emailSender = svc
	} else {
		slog.Warn("SMTP not configured, emails are logged instead of sent")
	}

	var smsSender notify.SMSSender
	if cfg.SMS.Enabled() {
		client, err := sms.NewClient(cfg.SMS, &http.Client{Timeout: smsTimeout})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to configure sms: %w", err)
		}
		smsSender = client
	} else {
		slog.Warn("SMS not configured, text messages are logged instead of sent")
	}

	return emailSender, smsSender, nil
}

func setupRoutes(e *echo.Echo, h *handlers.Handlers, reg *prometheus.Registry) {
	// Static files
	e.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static", assets.FileServer())))

	// Operational
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Buyer
	e.GET("/", h.Home)
	e.POST("/sessions", h.CreateSession)

	// Seller
	e.GET("/verify/:token", h.Seller)
	e.POST("/verify/:token/start", h.Start)
	e.POST("/verify/:token/id", h.SubmitID)
	e.POST("/verify/:token/property", h.SubmitProperty)
	e.POST("/verify/:token/vehicle", h.SubmitVehicle)

	// Results
	e.GET("/results/:token", h.Results)
	e.GET("/results/:token/events", h.Events)
}

func (s *Server) startWithGracefulShutdown(ctx context.Context) error {
	cfg := s.cfg
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	if !cfg.TLS.Enabled() && !config.IsLocalhost(cfg.Server.Host) {
		slog.Warn("serving plain HTTP on a public address, terminate TLS in front of the server",
			"host", cfg.Server.Host)
	}

	// Channel for server errors
	errChan := make(chan error, 1)

	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL, "tls", cfg.TLS.Enabled())
		var err error
		if cfg.TLS.Enabled() {
			err = s.Echo.StartTLS(addr, cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			err = s.Echo.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Echo.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	// Let in-flight notifications finish before the database closes
	s.Notifier.Wait()

	slog.Info("server stopped")
	return nil
}
