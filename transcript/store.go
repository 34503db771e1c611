// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import "sync"

// Store holds one Window per open session. Windows are created when a
// session is opened and discarded when the user navigates away — there
// is no cross-session reuse, which bounds memory to the sessions
// currently on screen.
type Store struct {
	mu      sync.Mutex
	windows map[sessionKey]*Window
}

type sessionKey struct {
	workspace string
	sessionID string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{windows: make(map[sessionKey]*Window)}
}

// Open returns the window for a session, creating it if needed.
func (s *Store) Open(workspace, sessionID string) *Window {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{workspace, sessionID}
	window, ok := s.windows[key]
	if !ok {
		window = NewWindow()
		s.windows[key] = window
	}
	return window
}

// Get returns the window for a session without creating one.
func (s *Store) Get(workspace, sessionID string) (*Window, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	window, ok := s.windows[sessionKey{workspace, sessionID}]
	return window, ok
}

// Close discards a session's window.
func (s *Store) Close(workspace, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, sessionKey{workspace, sessionID})
}

// CloseAll discards every window. Called on disconnect.
func (s *Store) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = make(map[sessionKey]*Window)
}
