// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"testing"

	"github.com/tetherhq/tether/wire"
)

func entry(uuid string) wire.TranscriptEntry {
	return wire.TranscriptEntry{UUID: uuid, Role: wire.RoleAssistant, Content: "content " + uuid}
}

func uuids(entries []wire.TranscriptEntry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.UUID)
	}
	return out
}

func equal(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestInitialPageReplacesWindow(t *testing.T) {
	window := NewWindow()
	if window.OldestLoadedIndex() != -1 {
		t.Fatalf("OldestLoadedIndex before load = %d, want -1", window.OldestLoadedIndex())
	}

	err := window.ApplyPage(wire.PageResponse{
		Messages:    []wire.TranscriptEntry{entry("m3"), entry("m4"), entry("m5")},
		HasMore:     true,
		OldestIndex: 2,
		IsInitial:   true,
	})
	if err != nil {
		t.Fatalf("ApplyPage: %v", err)
	}
	if !equal(uuids(window.Messages()), []string{"m3", "m4", "m5"}) {
		t.Fatalf("messages = %v, want [m3 m4 m5]", uuids(window.Messages()))
	}
	if !window.HasMoreOlder() || window.OldestLoadedIndex() != 2 {
		t.Fatalf("hasMore=%v oldest=%d, want true/2", window.HasMoreOlder(), window.OldestLoadedIndex())
	}

	// A later initial page (reconnect) replaces, never merges.
	err = window.ApplyPage(wire.PageResponse{
		Messages:    []wire.TranscriptEntry{entry("m7")},
		OldestIndex: 6,
		IsInitial:   true,
	})
	if err != nil {
		t.Fatalf("ApplyPage: %v", err)
	}
	if !equal(uuids(window.Messages()), []string{"m7"}) {
		t.Fatalf("messages after replace = %v, want [m7]", uuids(window.Messages()))
	}
}

func TestPrependThenLiveAppend(t *testing.T) {
	window := NewWindow()
	if err := window.ApplyPage(wire.PageResponse{
		Messages:    []wire.TranscriptEntry{entry("m3"), entry("m4"), entry("m5")},
		HasMore:     true,
		OldestIndex: 2,
		IsInitial:   true,
	}); err != nil {
		t.Fatalf("initial page: %v", err)
	}

	if err := window.ApplyPage(wire.PageResponse{
		Messages:    []wire.TranscriptEntry{entry("m1"), entry("m2")},
		HasMore:     false,
		OldestIndex: 0,
	}); err != nil {
		t.Fatalf("prepend: %v", err)
	}

	if !equal(uuids(window.Messages()), []string{"m1", "m2", "m3", "m4", "m5"}) {
		t.Fatalf("messages = %v, want [m1..m5]", uuids(window.Messages()))
	}
	if window.OldestLoadedIndex() != 0 {
		t.Fatalf("OldestLoadedIndex = %d, want 0", window.OldestLoadedIndex())
	}
	if window.HasMoreOlder() {
		t.Fatal("HasMoreOlder should be false after the last page")
	}

	window.Append([]wire.TranscriptEntry{entry("m6")})
	if !equal(uuids(window.Messages()), []string{"m1", "m2", "m3", "m4", "m5", "m6"}) {
		t.Fatalf("messages = %v, want [m1..m6]", uuids(window.Messages()))
	}
}

func TestPrependMustLowerOldestIndex(t *testing.T) {
	window := NewWindow()
	if err := window.ApplyPage(wire.PageResponse{
		Messages:    []wire.TranscriptEntry{entry("m3")},
		OldestIndex: 2,
		IsInitial:   true,
	}); err != nil {
		t.Fatalf("initial page: %v", err)
	}

	err := window.ApplyPage(wire.PageResponse{
		Messages:    []wire.TranscriptEntry{entry("m9")},
		OldestIndex: 2,
	})
	if err == nil {
		t.Fatal("prepend that does not lower the oldest index must be rejected")
	}
}

func TestPrependMustBeContiguous(t *testing.T) {
	window := NewWindow()
	if err := window.ApplyPage(wire.PageResponse{
		Messages:    []wire.TranscriptEntry{entry("m5")},
		OldestIndex: 4,
		IsInitial:   true,
	}); err != nil {
		t.Fatalf("initial page: %v", err)
	}

	// Page covers [0,2) but the head is at 4 — a gap of two entries.
	err := window.ApplyPage(wire.PageResponse{
		Messages:    []wire.TranscriptEntry{entry("m1"), entry("m2")},
		OldestIndex: 0,
	})
	if err == nil {
		t.Fatal("prepend leaving a gap must be rejected")
	}
}

func TestPrependBeforeInitialLoadRejected(t *testing.T) {
	window := NewWindow()
	err := window.ApplyPage(wire.PageResponse{
		Messages:    []wire.TranscriptEntry{entry("m1")},
		OldestIndex: 0,
	})
	if err == nil {
		t.Fatal("older page before initial load must be rejected")
	}
}

func TestAppendDropsDuplicates(t *testing.T) {
	window := NewWindow()
	if err := window.ApplyPage(wire.PageResponse{
		Messages:    []wire.TranscriptEntry{entry("m1"), entry("m2")},
		OldestIndex: 0,
		IsInitial:   true,
	}); err != nil {
		t.Fatalf("initial page: %v", err)
	}

	window.Append([]wire.TranscriptEntry{entry("m2"), entry("m3")})
	if !equal(uuids(window.Messages()), []string{"m1", "m2", "m3"}) {
		t.Fatalf("messages = %v, want [m1 m2 m3]", uuids(window.Messages()))
	}
}

func TestNextRequestCursor(t *testing.T) {
	window := NewWindow()
	request := window.NextRequest("proj", "session-a", 50)
	if request.BeforeIndex != nil {
		t.Fatal("first request must omit the cursor (initial load)")
	}

	if err := window.ApplyPage(wire.PageResponse{
		Messages:    []wire.TranscriptEntry{entry("m5")},
		HasMore:     true,
		OldestIndex: 4,
		IsInitial:   true,
	}); err != nil {
		t.Fatalf("initial page: %v", err)
	}

	request = window.NextRequest("proj", "session-a", 50)
	if request.BeforeIndex == nil || *request.BeforeIndex != 4 {
		t.Fatalf("BeforeIndex = %v, want 4", request.BeforeIndex)
	}
}

func TestStoreLifecycle(t *testing.T) {
	store := NewStore()
	window := store.Open("proj", "session-a")
	if again := store.Open("proj", "session-a"); again != window {
		t.Fatal("Open should return the existing window")
	}

	if _, ok := store.Get("proj", "session-b"); ok {
		t.Fatal("Get should not create windows")
	}

	store.Close("proj", "session-a")
	if _, ok := store.Get("proj", "session-a"); ok {
		t.Fatal("window should be discarded after Close")
	}

	store.Open("proj", "session-a")
	store.Open("proj", "session-b")
	store.CloseAll()
	if _, ok := store.Get("proj", "session-a"); ok {
		t.Fatal("CloseAll should discard every window")
	}
}
