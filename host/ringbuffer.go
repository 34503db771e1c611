// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package host

import "sync"

// DefaultHistorySize is the default terminal history capacity in
// bytes. 1 MB of raw output covers hours of typical agent activity.
const DefaultHistorySize = 1024 * 1024

// HistoryBuffer is a fixed-capacity circular buffer of raw terminal
// bytes. Escape sequences are kept verbatim so a replay reproduces the
// screen exactly. When full, new output overwrites the oldest.
//
// Safe for concurrent use.
type HistoryBuffer struct {
	mu       sync.Mutex
	data     []byte
	capacity int

	// writePos is the next write index within data.
	writePos int

	// total is the number of bytes ever written; min(total, capacity)
	// bytes are currently retained.
	total uint64
}

// NewHistoryBuffer creates a buffer holding the last capacity bytes.
func NewHistoryBuffer(capacity int) *HistoryBuffer {
	return &HistoryBuffer{
		data:     make([]byte, capacity),
		capacity: capacity,
	}
}

// Write records terminal output, overwriting the oldest bytes when
// full. Implements io.Writer and never fails, so it can sit in a relay
// path without error plumbing.
func (b *HistoryBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A write at or above capacity replaces the whole buffer; only the
	// tail survives.
	if len(p) >= b.capacity {
		copy(b.data, p[len(p)-b.capacity:])
		b.writePos = 0
		b.total += uint64(len(p))
		return len(p), nil
	}

	for offset := 0; offset < len(p); {
		n := copy(b.data[b.writePos:], p[offset:])
		b.writePos = (b.writePos + n) % b.capacity
		offset += n
	}
	b.total += uint64(len(p))
	return len(p), nil
}

// Snapshot returns the retained bytes, oldest first. The result is a
// copy; later writes do not change it.
func (b *HistoryBuffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := b.capacity
	if b.total < uint64(b.capacity) {
		stored = int(b.total)
	}
	out := make([]byte, stored)
	if b.writePos >= stored {
		copy(out, b.data[b.writePos-stored:b.writePos])
		return out
	}
	n := copy(out, b.data[b.capacity-(stored-b.writePos):])
	copy(out[n:], b.data[:b.writePos])
	return out
}

// TotalWritten returns the number of bytes ever written, retained or
// not.
func (b *HistoryBuffer) TotalWritten() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}
