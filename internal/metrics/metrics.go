// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

// Package metrics exposes Prometheus instruments for the verification flow.
// All methods are safe on a nil *Metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the verification service instruments.
type Metrics struct {
	SessionsCreated   *prometheus.CounterVec
	SessionsCompleted *prometheus.CounterVec
	CheckOutcomes     *prometheus.CounterVec
	CheckLatency      *prometheus.HistogramVec
	Notifications     *prometheus.CounterVec
}

// New registers all instruments with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		SessionsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustlink_sessions_created_total",
			Help: "Verification sessions created by verification type",
		}, []string{"type"}),

		SessionsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustlink_sessions_completed_total",
			Help: "Verification sessions completed by type and overall verdict",
		}, []string{"type", "fully_verified"}),

		CheckOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustlink_check_outcomes_total",
			Help: "Check outcomes by kind and match",
		}, []string{"kind", "match"}), // kind: "identity", "property", "vehicle"

		CheckLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustlink_check_duration_seconds",
			Help:    "Duration of checks against the verification backend",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5},
		}, []string{"kind"}),

		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustlink_notifications_total",
			Help: "Notification deliveries by channel and result",
		}, []string{"channel", "result"}), // result: "sent", "failed"
	}
}

// IncSessionCreated records a new session.
func (m *Metrics) IncSessionCreated(verificationType string) {
	if m != nil {
		m.SessionsCreated.WithLabelValues(verificationType).Inc()
	}
}

// IncSessionCompleted records a completed session and its verdict.
func (m *Metrics) IncSessionCompleted(verificationType string, fullyVerified bool) {
	if m != nil {
		m.SessionsCompleted.WithLabelValues(verificationType, strconv.FormatBool(fullyVerified)).Inc()
	}
}

// ObserveCheck records one check and how long it took.
func (m *Metrics) ObserveCheck(kind string, match bool, d time.Duration) {
	if m != nil {
		m.CheckOutcomes.WithLabelValues(kind, strconv.FormatBool(match)).Inc()
		m.CheckLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// LiveStreams reports open event streams.
type LiveStreams interface {
	ClientCount() int
	TopicCount() int
}

// RegisterLiveStreams exposes the number of open event streams and of
// sessions being watched as gauges read at scrape time.
func RegisterLiveStreams(reg prometheus.Registerer, streams LiveStreams) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "trustlink_event_streams",
		Help: "Open results page event streams",
	}, func() float64 { return float64(streams.ClientCount()) })

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "trustlink_watched_sessions",
		Help: "Sessions with at least one open event stream",
	}, func() float64 { return float64(streams.TopicCount()) })
}

// IncNotification records a delivery attempt on channel.
func (m *Metrics) IncNotification(channel string, err error) {
	if m != nil {
		result := "sent"
		if err != nil {
			result = "failed"
		}
		m.Notifications.WithLabelValues(channel, result).Inc()
	}
}
