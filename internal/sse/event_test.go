// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:     "message without event name",
			data:     "hello",
			expected: "data: hello\n\n",
		},
		{
			name:      "status event",
			eventName: "completed",
			data:      "completed",
			expected:  "event: completed\ndata: completed\n\n",
		},
		{
			name:      "multiline data",
			eventName: "progress",
			data:      "line1\nline2",
			expected:  "event: progress\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatEvent(tt.eventName, tt.data))
		})
	}
}

func TestHeartbeat(t *testing.T) {
	assert.Equal(t, ": heartbeat\n\n", Heartbeat)
	assert.Equal(t, ':', rune(Heartbeat[0]))
}

func TestConnected(t *testing.T) {
	assert.Equal(t, "event: connected\ndata: ok\n\n", Connected)
}
