// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"sync"

	"github.com/samber/lo"
)

// Hub fans events out to clients watching a topic. Topics are session tokens;
// every open results page for a session is one client.
type Hub struct {
	clients map[string][]chan string
	mu      sync.RWMutex
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string][]chan string),
	}
}

// Subscribe adds a client for topic and returns the channel it receives on.
func (h *Hub) Subscribe(topic string) chan string {
	ch := make(chan string, 10) // buffered to prevent blocking

	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[topic] = append(h.clients[topic], ch)
	return ch
}

// Unsubscribe removes a client channel from topic.
func (h *Hub) Unsubscribe(topic string, ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[topic] = lo.Without(h.clients[topic], ch)
	if len(h.clients[topic]) == 0 {
		delete(h.clients, topic)
	}
}

// Publish sends a message to every client of topic. Clients with a full
// buffer miss the message.
func (h *Hub) Publish(topic, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients[topic] {
		select {
		case ch <- message:
		default:
			// Channel full, skip
		}
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.SumBy(lo.Values(h.clients), func(clients []chan string) int {
		return len(clients)
	})
}

// TopicCount returns the number of topics with active clients.
func (h *Hub) TopicCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
