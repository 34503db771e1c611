// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the protocol spoken between a tether client and
// a tether host. Both sides import it; nothing here touches sockets.
//
// The control channel carries JSON envelopes with a type discriminator.
// Requests that expect a reply carry a correlation id which the host
// echoes on the response envelope; unsolicited pushes (session_update,
// error) carry no id. Decode turns a raw envelope into a closed tagged
// union so dispatch code never reads untyped maps.
//
// The terminal channel is a separate WebSocket upgrade carrying framed
// binary messages: one byte of frame type, a four byte big-endian
// payload length, then the payload. Raw terminal bytes, resize
// requests, the compressed scrollback history dump, and the session
// metadata each have their own frame type.
package wire
