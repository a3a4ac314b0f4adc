// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package metrics_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"codeberg.org/trustlink/trustlink/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.IncSessionCreated("both")
		m.IncSessionCompleted("both", true)
		m.ObserveCheck("identity", true, time.Second)
		m.IncNotification("email", nil)
	})
}

func TestCounters(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.IncSessionCreated("both")
	m.IncSessionCreated("both")
	m.IncSessionCompleted("vehicle", false)
	m.ObserveCheck("vehicle", false, 1100*time.Millisecond)
	m.IncNotification("sms", errors.New("boom"))

	assert.InDelta(t, 2, testutil.ToFloat64(m.SessionsCreated.WithLabelValues("both")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SessionsCompleted.WithLabelValues("vehicle", "false")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CheckOutcomes.WithLabelValues("vehicle", "false")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Notifications.WithLabelValues("sms", "failed")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.Notifications.WithLabelValues("sms", "sent")), 0)
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.New(prometheus.NewRegistry())
		metrics.New(prometheus.NewRegistry())
	})
}

type fakeStreams struct{ clients, topics int }

func (f fakeStreams) ClientCount() int { return f.clients }
func (f fakeStreams) TopicCount() int  { return f.topics }

func TestRegisterLiveStreams(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.RegisterLiveStreams(reg, fakeStreams{clients: 3, topics: 2})

	expected := `
# HELP trustlink_event_streams Open results page event streams
# TYPE trustlink_event_streams gauge
trustlink_event_streams 3
# HELP trustlink_watched_sessions Sessions with at least one open event stream
# TYPE trustlink_watched_sessions gauge
trustlink_watched_sessions 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"trustlink_event_streams", "trustlink_watched_sessions"))
}
