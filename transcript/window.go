// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package transcript maintains the client's view of a session's
// append-only message log: a contiguous window that grows backwards by
// prepending older pages and forwards by appending live updates.
package transcript

import (
	"fmt"
	"sync"

	"github.com/tetherhq/tether/wire"
)

// Window is the loaded slice of one session's transcript. Pages from
// get_session_messages_page either replace the window (initial load)
// or prepend to its head (scroll-back); session_update pushes always
// append at the tail. The two never touch the same end, so a pending
// prepend cannot corrupt ordering against concurrent live appends.
//
// Window is safe for concurrent use.
type Window struct {
	mu sync.Mutex

	messages []wire.TranscriptEntry

	// hasMoreOlder reports whether the host holds entries older than
	// the current head.
	hasMoreOlder bool

	// oldestLoadedIndex is the log index of messages[0]. -1 until an
	// initial page arrives.
	oldestLoadedIndex int

	loaded bool

	// seen holds the UUID of every entry in the window. Live pushes
	// can race a page carrying the same tail entries; duplicates are
	// dropped on arrival.
	seen map[string]struct{}
}

// NewWindow returns an empty window awaiting its initial page.
func NewWindow() *Window {
	return &Window{
		oldestLoadedIndex: -1,
		seen:              make(map[string]struct{}),
	}
}

// NextRequest builds the page request that grows this window: an
// initial load while the window is empty, otherwise an older page
// anchored strictly before the current head.
func (w *Window) NextRequest(workspace, sessionID string, limit int) wire.PageRequest {
	w.mu.Lock()
	defer w.mu.Unlock()

	request := wire.PageRequest{Workspace: workspace, SessionID: sessionID, Limit: limit}
	if w.loaded {
		before := w.oldestLoadedIndex
		request.BeforeIndex = &before
	}
	return request
}

// ApplyPage folds a page response into the window. An initial page
// replaces the window wholesale; an older page prepends at the head.
// A prepend must lower oldestLoadedIndex and close ranks exactly
// against the current head — a gap or overlap means the caller paired
// the response with a stale window, and the page is rejected.
func (w *Window) ApplyPage(page wire.PageResponse) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if page.IsInitial {
		w.messages = append([]wire.TranscriptEntry(nil), page.Messages...)
		w.hasMoreOlder = page.HasMore
		w.oldestLoadedIndex = page.OldestIndex
		w.loaded = true
		w.seen = make(map[string]struct{}, len(page.Messages))
		for _, entry := range page.Messages {
			w.seen[entry.UUID] = struct{}{}
		}
		return nil
	}

	if !w.loaded {
		return fmt.Errorf("transcript: older page before initial load")
	}
	if len(page.Messages) == 0 {
		w.hasMoreOlder = page.HasMore
		return nil
	}
	if page.OldestIndex >= w.oldestLoadedIndex {
		return fmt.Errorf("transcript: prepend does not lower oldest index: %d >= %d",
			page.OldestIndex, w.oldestLoadedIndex)
	}
	if page.OldestIndex+len(page.Messages) != w.oldestLoadedIndex {
		return fmt.Errorf("transcript: prepend leaves a gap: page covers [%d,%d), window head at %d",
			page.OldestIndex, page.OldestIndex+len(page.Messages), w.oldestLoadedIndex)
	}

	for _, entry := range page.Messages {
		if _, duplicate := w.seen[entry.UUID]; duplicate {
			return fmt.Errorf("transcript: prepend repeats entry %s", entry.UUID)
		}
	}

	merged := make([]wire.TranscriptEntry, 0, len(page.Messages)+len(w.messages))
	merged = append(merged, page.Messages...)
	merged = append(merged, w.messages...)
	w.messages = merged
	w.oldestLoadedIndex = page.OldestIndex
	w.hasMoreOlder = page.HasMore
	for _, entry := range page.Messages {
		w.seen[entry.UUID] = struct{}{}
	}
	return nil
}

// Append adds live entries at the tail, dropping any UUID already in
// the window. Safe regardless of pending pagination requests.
func (w *Window) Append(entries []wire.TranscriptEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, entry := range entries {
		if _, duplicate := w.seen[entry.UUID]; duplicate {
			continue
		}
		w.messages = append(w.messages, entry)
		w.seen[entry.UUID] = struct{}{}
	}
}

// Messages returns a copy of the window in chronological order.
func (w *Window) Messages() []wire.TranscriptEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]wire.TranscriptEntry(nil), w.messages...)
}

// HasMoreOlder reports whether another older page exists.
func (w *Window) HasMoreOlder() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasMoreOlder
}

// OldestLoadedIndex returns the log index of the window head, or -1
// before the initial load.
func (w *Window) OldestLoadedIndex() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.oldestLoadedIndex
}

// Len returns the number of loaded entries.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.messages)
}
