// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHub_SubscribeAndUnsubscribe(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe("token1")
	assert.NotNil(t, ch)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.TopicCount())

	// Second results tab for the same session
	ch2 := hub.Subscribe("token1")
	assert.Equal(t, 2, hub.ClientCount())
	assert.Equal(t, 1, hub.TopicCount())

	hub.Unsubscribe("token1", ch)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unsubscribe("token1", ch2)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.TopicCount())
}

func TestHub_Publish(t *testing.T) {
	hub := NewHub()

	ch1 := hub.Subscribe("token1")
	ch2 := hub.Subscribe("token1")
	ch3 := hub.Subscribe("token2")

	hub.Publish("token1", "completed")

	for _, ch := range []chan string{ch1, ch2} {
		select {
		case msg := <-ch:
			assert.Equal(t, "completed", msg)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("subscriber should have received message")
		}
	}

	select {
	case <-ch3:
		t.Fatal("other topic should not have received message")
	case <-time.After(50 * time.Millisecond):
		// Expected
	}

	hub.Unsubscribe("token1", ch1)
	hub.Unsubscribe("token1", ch2)
	hub.Unsubscribe("token2", ch3)
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub()

	assert.NotPanics(t, func() {
		hub.Publish("nobody", "completed")
	})
}

func TestHub_NonBlockingPublish(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe("token1")

	// Fill the channel buffer (size 10)
	for range 10 {
		hub.Publish("token1", "msg")
	}

	done := make(chan bool)
	go func() {
		hub.Publish("token1", "overflow")
		done <- true
	}()

	select {
	case <-done:
		// Expected - publish should not block
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Publish blocked on full channel")
	}

	hub.Unsubscribe("token1", ch)
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	const numGoroutines = 100

	channels := make([]chan string, numGoroutines)
	for i := range numGoroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			channels[idx] = hub.Subscribe("token")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, numGoroutines, hub.ClientCount())

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Publish("token", "concurrent")
		}()
	}
	wg.Wait()

	for i := range numGoroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			hub.Unsubscribe("token", channels[idx])
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, hub.ClientCount())
}
