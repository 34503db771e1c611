// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package events

import "sync"

// Releaser aggregates teardown work — subscription cancels, timer
// stops — so a component can release everything it created in one
// call. After Release, further Add calls run their function
// immediately, which keeps late registrations from leaking across a
// reconnect.
type Releaser struct {
	mu       sync.Mutex
	released bool
	funcs    []func()
}

// Add registers f to run on Release. If the Releaser is already
// released, f runs immediately.
func (r *Releaser) Add(f func()) {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		f()
		return
	}
	r.funcs = append(r.funcs, f)
	r.mu.Unlock()
}

// Release runs every registered function in reverse registration order
// and clears the list. Idempotent.
func (r *Releaser) Release() {
	r.mu.Lock()
	funcs := r.funcs
	r.funcs = nil
	r.released = true
	r.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		funcs[i]()
	}
}
