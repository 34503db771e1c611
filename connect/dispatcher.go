// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package connect

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/tetherhq/tether/wire"
)

// requestResult resolves one correlated request: a decoded response or
// the error that stands in for it.
type requestResult struct {
	message wire.Message
	err     error
}

// handleFrame decodes and routes one inbound frame. Every failure mode
// is contained here: a malformed frame, an unknown type, or a panicking
// handler is logged and dropped so the read loop survives for the next
// frame.
func (m *Manager) handleFrame(generation uint64, data []byte) {
	defer func() {
		if recovered := recover(); recovered != nil {
			m.logger.Error("panic handling frame", "panic", recovered)
		}
	}()

	message, err := wire.Decode(data)
	if err != nil {
		if errors.Is(err, wire.ErrUnknownType) {
			m.logger.Warn("dropping unknown message type", "type", message.Type)
		} else {
			m.logger.Warn("dropping malformed frame", "error", err)
		}
		return
	}

	switch {
	case message.Type == wire.TypeAuthSuccess:
		m.handleAuthSuccess(generation, message)
	case message.Type == wire.TypePong:
		m.handlePong(generation)
	case message.ID != "":
		m.resolvePending(message)
	default:
		m.dispatchPush(message)
	}
}

// resolvePending completes the request registered under the frame's
// correlation id. A response nothing is waiting for — the request
// timed out or the connection cycled — is logged and dropped.
func (m *Manager) resolvePending(message wire.Message) {
	m.mu.Lock()
	result, ok := m.pending[message.ID]
	delete(m.pending, message.ID)
	m.mu.Unlock()

	if !ok {
		m.logger.Warn("dropping response with no pending request", "type", message.Type, "id", message.ID)
		return
	}
	if message.Failure != nil {
		result <- requestResult{err: message.Failure}
		return
	}
	result <- requestResult{message: message}
}

// dispatchPush routes an unsolicited frame to its registered handler,
// or onto the event channel for host errors. Pushes nobody consumes
// are logged and dropped, not fatal.
func (m *Manager) dispatchPush(message wire.Message) {
	if message.Failure != nil {
		m.logger.Warn("host reported error", "type", message.Type, "error", message.Failure.Message)
		m.events.Publish(TopicHostError, message.Failure)
		return
	}

	m.mu.Lock()
	handler := m.pushHandlers[message.Type]
	m.mu.Unlock()

	if handler == nil {
		m.logger.Warn("dropping unhandled push", "type", message.Type)
		return
	}
	handler(message)
}

// RegisterPushHandler installs the handler for one unsolicited message
// type (e.g. session_update). One handler per type; later calls
// replace earlier ones.
func (m *Manager) RegisterPushHandler(messageType string, handler func(wire.Message)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushHandlers[messageType] = handler
}

// Request sends a correlated request and blocks for its response. The
// correlation id is attached to the envelope and registered before the
// write, so the response cannot race the registration. Fails with
// ErrNotConnected before auth, with the host's error for failed
// responses, and with a timeout error when the response window — the
// manager's default — elapses.
func (m *Manager) Request(ctx context.Context, messageType string, payload any) (wire.Message, error) {
	m.mu.Lock()
	if m.state != StateConnected || m.socket == nil {
		m.mu.Unlock()
		return wire.Message{}, ErrNotConnected
	}
	m.nextRequestID++
	id := strconv.FormatUint(m.nextRequestID, 10)
	result := make(chan requestResult, 1)
	m.pending[id] = result
	socket := m.socket
	timeout := m.requestTimeout
	m.mu.Unlock()

	frame, err := wire.Encode(messageType, id, payload)
	if err != nil {
		m.removePending(id)
		return wire.Message{}, err
	}
	if err := socket.WriteMessage(frame); err != nil {
		m.removePending(id)
		return wire.Message{}, fmt.Errorf("connect: send %s: %w", messageType, err)
	}

	timer := m.clock.AfterFunc(timeout, func() {
		m.failPending(id, fmt.Errorf("connect: %s timed out after %s", messageType, timeout))
	})
	defer timer.Stop()

	select {
	case resolved := <-result:
		return resolved.message, resolved.err
	case <-ctx.Done():
		m.removePending(id)
		return wire.Message{}, ctx.Err()
	}
}

// Send transmits a fire-and-forget message (watch_session,
// unwatch_session): no correlation id, no response expected.
func (m *Manager) Send(messageType string, payload any) error {
	m.mu.Lock()
	if m.state != StateConnected || m.socket == nil {
		m.mu.Unlock()
		return ErrNotConnected
	}
	socket := m.socket
	m.mu.Unlock()

	frame, err := wire.Encode(messageType, "", payload)
	if err != nil {
		return err
	}
	if err := socket.WriteMessage(frame); err != nil {
		return fmt.Errorf("connect: send %s: %w", messageType, err)
	}
	return nil
}

// removePending deregisters a correlation id without resolving it.
func (m *Manager) removePending(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
}

// failPending resolves a correlation id with an error if it is still
// registered.
func (m *Manager) failPending(id string, cause error) {
	m.mu.Lock()
	result, ok := m.pending[id]
	delete(m.pending, id)
	m.mu.Unlock()
	if ok {
		result <- requestResult{err: cause}
	}
}

// takePendingLocked empties the pending registry and returns the
// channels to fail outside the lock.
func (m *Manager) takePendingLocked() []chan requestResult {
	failing := make([]chan requestResult, 0, len(m.pending))
	for _, result := range m.pending {
		failing = append(failing, result)
	}
	m.pending = make(map[string]chan requestResult)
	return failing
}
