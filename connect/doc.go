// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package connect implements the client side of the tether control
// channel: one persistent WebSocket that authenticates, multiplexes
// every logical stream, detects silent failures with heartbeats, and
// reconnects with bounded backoff.
//
// The package is organized around the connection data flow:
//
//   - socket.go: the Socket/Dialer seam over gorilla/websocket
//   - manager.go: connection lifecycle, heartbeat, reconnect policy
//   - dispatcher.go: inbound frame routing and request correlation
//   - client.go: typed operations wiring responses into the caches
//   - terminal.go: the separate terminal upgrade path
//
// A Manager is explicitly constructed with its clock, event channel,
// and dialer injected; the application composition root owns the one
// process-wide instance. Connection state and quality changes are
// published on the event channel, never pulled by the UI.
package connect
