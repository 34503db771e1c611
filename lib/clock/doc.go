// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time so that connection timers can be driven
// deterministically in tests.
//
// Everything in tether that schedules work — the heartbeat ticker, the
// reconnect backoff timer, request timeouts, the host's transcript
// watch poller — takes a Clock instead of calling the time package
// directly. Production wiring passes Real(); tests pass Fake() and
// advance time explicitly.
//
// A FakeClock only moves when Advance is called. Goroutines that
// register timers race with the test advancing the clock; use
// WaitForTimers to block until the expected number of timers exist
// before advancing:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	manager := connect.NewManager(connect.ManagerConfig{Clock: fake, ...})
//	// ... trigger something that starts a timer ...
//	fake.WaitForTimers(1)
//	fake.Advance(30 * time.Second)
package clock
