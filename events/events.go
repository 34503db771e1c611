// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package events provides the publish/subscribe primitive that
// decouples the connection layer from its observers. The connection
// manager and dispatcher publish onto named topics (connection state,
// session updates, terminal output); UI code subscribes without ever
// touching connection internals.
package events

import "sync"

// Wildcard subscribes to every topic. Wildcard handlers receive the
// concrete topic name with each payload.
const Wildcard = "*"

// Handler receives a published payload. The topic is passed explicitly
// so wildcard handlers can discriminate.
type Handler func(topic string, payload any)

// Channel is a topic-keyed fan-out. Delivery is synchronous and in
// subscription order; a handler may cancel its own subscription during
// delivery without deadlocking.
//
// Channel is safe for concurrent use.
type Channel struct {
	mu          sync.Mutex
	nextID      uint64
	subscribers map[string][]*subscriber
}

type subscriber struct {
	id      uint64
	handler Handler
}

// New returns an empty Channel.
func New() *Channel {
	return &Channel{subscribers: make(map[string][]*subscriber)}
}

// Subscribe registers handler for topic and returns a cancel function.
// Cancel is idempotent. Use Wildcard to receive every topic.
func (c *Channel) Subscribe(topic string, handler Handler) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	entry := &subscriber{id: c.nextID, handler: handler}
	c.subscribers[topic] = append(c.subscribers[topic], entry)

	id := entry.id
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		list := c.subscribers[topic]
		for i, candidate := range list {
			if candidate.id == id {
				c.subscribers[topic] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers payload to every subscriber of topic, then to every
// wildcard subscriber. Handlers run synchronously in the caller's
// goroutine; the subscriber list is snapshotted first so handlers may
// subscribe or cancel during delivery.
func (c *Channel) Publish(topic string, payload any) {
	c.mu.Lock()
	snapshot := make([]*subscriber, 0, len(c.subscribers[topic])+len(c.subscribers[Wildcard]))
	snapshot = append(snapshot, c.subscribers[topic]...)
	if topic != Wildcard {
		snapshot = append(snapshot, c.subscribers[Wildcard]...)
	}
	c.mu.Unlock()

	for _, entry := range snapshot {
		entry.handler(topic, payload)
	}
}

// DropAll removes every subscriber on every topic. The connection
// manager calls this on manual disconnect so observers from a previous
// session cannot leak into the next one.
func (c *Channel) DropAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = make(map[string][]*subscriber)
}

// SubscriberCount returns the number of live subscriptions for topic.
func (c *Channel) SubscriberCount(topic string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers[topic])
}

// Subscribe registers a handler for payloads of type T on topic.
// Payloads of any other type are ignored. Returns a cancel function.
func Subscribe[T any](c *Channel, topic string, handler func(T)) (cancel func()) {
	return c.Subscribe(topic, func(_ string, payload any) {
		if value, ok := payload.(T); ok {
			handler(value)
		}
	})
}
