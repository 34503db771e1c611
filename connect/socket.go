// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package connect

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tetherhq/tether/wire"
)

// Params identifies one connection attempt: where to dial and what
// token to present. Params are immutable per attempt and survive
// transient network loss so the resume path can reuse them; they are
// destroyed only by an explicit disconnect.
type Params struct {
	Host  string
	Port  int
	Token string
}

// ControlURL returns the WebSocket URL of the control channel.
func (p Params) ControlURL() string {
	return fmt.Sprintf("ws://%s/ws", p.address())
}

// TerminalURL returns the WebSocket URL of the terminal channel for
// one session. The token rides in the query string because the
// terminal path authenticates at upgrade time, not with a first frame.
// An empty terminalType means wire.DefaultTerminalType.
func (p Params) TerminalURL(sessionID, terminalType string, columns, rows uint16) string {
	if terminalType == "" {
		terminalType = wire.DefaultTerminalType
	}
	query := url.Values{}
	query.Set("token", p.Token)
	query.Set("sessionId", sessionID)
	query.Set("type", terminalType)
	query.Set("cols", strconv.Itoa(int(columns)))
	query.Set("rows", strconv.Itoa(int(rows)))
	return fmt.Sprintf("ws://%s/terminal?%s", p.address(), query.Encode())
}

func (p Params) address() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// Socket is one open channel to the host. ReadMessage blocks until a
// message arrives or the socket dies; WriteMessage is safe for
// concurrent use.
type Socket interface {
	// ReadMessage returns the next complete message.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one complete message.
	WriteMessage(data []byte) error

	// Close tears the socket down. Pending reads fail.
	Close() error
}

// Dialer opens sockets. The Manager takes a Dialer so tests can
// substitute an in-memory socket pair for the real network.
type Dialer interface {
	Dial(ctx context.Context, socketURL string) (Socket, error)
}

// WebSocketDialer returns the production Dialer backed by
// gorilla/websocket.
func WebSocketDialer() Dialer {
	return webSocketDialer{}
}

type webSocketDialer struct{}

func (webSocketDialer) Dial(ctx context.Context, socketURL string) (Socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, socketURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connect: dial %s: %w", socketURL, err)
	}
	return &webSocket{conn: conn}, nil
}

// webSocket adapts *websocket.Conn to the Socket interface. gorilla
// permits one concurrent writer; the mutex serializes WriteMessage
// callers.
type webSocket struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *webSocket) ReadMessage() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

func (s *webSocket) WriteMessage(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *webSocket) Close() error {
	return s.conn.Close()
}

// TerminalDialer returns a Dialer for the terminal channel, where
// frames are binary WebSocket messages.
func TerminalDialer() Dialer {
	return binaryWebSocketDialer{}
}

type binaryWebSocketDialer struct{}

func (binaryWebSocketDialer) Dial(ctx context.Context, socketURL string) (Socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, socketURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connect: dial %s: %w", socketURL, err)
	}
	return &binaryWebSocket{conn: conn}, nil
}

// binaryWebSocket is the terminal-channel variant: frames are binary
// WebSocket messages, not text.
type binaryWebSocket struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *binaryWebSocket) ReadMessage() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

func (s *binaryWebSocket) WriteMessage(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (s *binaryWebSocket) Close() error {
	return s.conn.Close()
}
