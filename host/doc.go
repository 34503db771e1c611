// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package host implements the daemon side of the tether protocol: a
// WebSocket control channel answering workspace, transcript, file
// tree, and git queries, plus a binary terminal channel relaying live
// sessions.
//
// Layout:
//   - server.go: HTTP server, upgrade endpoints, wiring
//   - conn.go: per-connection auth handshake and dispatch loop
//   - auth.go: token verification (JWT or bcrypt static token)
//   - transcripts.go: JSONL-backed session store
//   - watch.go: live session_update push
//   - filetree.go: bounded directory tree snapshots
//   - terminal.go, ringbuffer.go: terminal relay with replayable history
//   - metrics.go: Prometheus instrumentation
package host
