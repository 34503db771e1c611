// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package connect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/tetherhq/tether/lib/netutil"
	"github.com/tetherhq/tether/wire"
)

// TerminalConfig configures one terminal attachment.
type TerminalConfig struct {
	// Params locate the host; the token authenticates at upgrade time.
	Params Params

	// SessionID selects the terminal session to attach to.
	SessionID string

	// Type is the terminal kind to attach (shell, agent, ...). Empty
	// means wire.DefaultTerminalType.
	Type string

	// Columns and Rows are the client's terminal dimensions at attach
	// time.
	Columns uint16
	Rows    uint16

	// Output receives scrollback history followed by live terminal
	// data, in order.
	Output io.Writer

	// Dialer defaults to TerminalDialer.
	Dialer Dialer

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// TerminalSession is one attached terminal channel. Writes carry
// keystrokes to the host; the session copies history and live output
// to the configured writer until the socket closes.
type TerminalSession struct {
	socket Socket
	output io.Writer
	logger *slog.Logger

	closeOnce sync.Once
	done      chan struct{}

	mu       sync.Mutex
	metadata wire.TerminalMetadata
	readErr  error
}

// AttachTerminal dials the terminal channel and waits for the host's
// metadata frame before returning. The returned session is live:
// history and output start flowing to config.Output immediately.
func AttachTerminal(ctx context.Context, config TerminalConfig) (*TerminalSession, error) {
	if config.Output == nil {
		return nil, fmt.Errorf("connect: terminal attach requires an output writer")
	}
	if config.Dialer == nil {
		config.Dialer = TerminalDialer()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	socketURL := config.Params.TerminalURL(config.SessionID, config.Type, config.Columns, config.Rows)
	socket, err := config.Dialer.Dial(ctx, socketURL)
	if err != nil {
		return nil, err
	}

	data, err := socket.ReadMessage()
	if err != nil {
		socket.Close()
		return nil, fmt.Errorf("connect: read terminal metadata: %w", err)
	}
	frame, err := wire.DecodeFrame(data)
	if err != nil {
		socket.Close()
		return nil, fmt.Errorf("connect: terminal handshake: %w", err)
	}
	if frame.Type != wire.FrameMetadata {
		socket.Close()
		return nil, fmt.Errorf("connect: terminal handshake: expected metadata frame, got 0x%02x", frame.Type)
	}
	session := &TerminalSession{
		socket: socket,
		output: config.Output,
		logger: config.Logger,
		done:   make(chan struct{}),
	}
	if err := json.Unmarshal(frame.Payload, &session.metadata); err != nil {
		socket.Close()
		return nil, fmt.Errorf("connect: terminal metadata: %w", err)
	}

	go session.readLoop()
	return session, nil
}

// Metadata returns the session details the host sent at attach time.
func (t *TerminalSession) Metadata() wire.TerminalMetadata {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metadata
}

// Write sends keystrokes to the host. Implements io.Writer so a raw
// terminal can be copied straight into the session.
func (t *TerminalSession) Write(p []byte) (int, error) {
	if err := t.socket.WriteMessage(wire.EncodeFrame(wire.NewDataFrame(p))); err != nil {
		return 0, fmt.Errorf("connect: terminal write: %w", err)
	}
	return len(p), nil
}

// Resize tells the host the client terminal changed size.
func (t *TerminalSession) Resize(columns, rows uint16) error {
	if err := t.socket.WriteMessage(wire.EncodeFrame(wire.NewResizeFrame(columns, rows))); err != nil {
		return fmt.Errorf("connect: terminal resize: %w", err)
	}
	return nil
}

// Done is closed when the session ends, whichever side closed it.
func (t *TerminalSession) Done() <-chan struct{} {
	return t.done
}

// Err reports why the read loop stopped. Nil before Done is closed and
// after a clean close.
func (t *TerminalSession) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readErr
}

// Close detaches from the session. The host keeps the terminal
// running.
func (t *TerminalSession) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.socket.Close()
	})
	return err
}

func (t *TerminalSession) readLoop() {
	defer close(t.done)
	for {
		data, err := t.socket.ReadMessage()
		if err != nil {
			if !netutil.IsExpectedCloseError(err) {
				t.setReadErr(fmt.Errorf("connect: terminal read: %w", err))
			}
			t.Close()
			return
		}
		frame, err := wire.DecodeFrame(data)
		if err != nil {
			t.logger.Warn("malformed terminal frame", "error", err)
			continue
		}
		switch frame.Type {
		case wire.FrameData:
			if _, err := t.output.Write(frame.Payload); err != nil {
				t.setReadErr(fmt.Errorf("connect: terminal output: %w", err))
				t.Close()
				return
			}
		case wire.FrameHistory:
			history, err := wire.DecodeHistory(frame.Payload)
			if err != nil {
				t.logger.Warn("undecodable terminal history", "error", err)
				continue
			}
			if _, err := t.output.Write(history); err != nil {
				t.setReadErr(fmt.Errorf("connect: terminal output: %w", err))
				t.Close()
				return
			}
		case wire.FrameMetadata:
			var metadata wire.TerminalMetadata
			if err := json.Unmarshal(frame.Payload, &metadata); err == nil {
				t.mu.Lock()
				t.metadata = metadata
				t.mu.Unlock()
			}
		default:
			t.logger.Warn("unexpected terminal frame", "type", frame.Type)
		}
	}
}

func (t *TerminalSession) setReadErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.readErr == nil {
		t.readErr = err
	}
}
