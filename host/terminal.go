// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/tetherhq/tether/wire"
)

// TerminalStream is the host side of one terminal session: reads yield
// output, writes deliver keystrokes.
type TerminalStream interface {
	io.ReadWriteCloser

	// Resize propagates the client's terminal dimensions.
	Resize(columns, rows uint16) error
}

// TerminalSession is what a backend hands to the relay.
type TerminalSession struct {
	Stream   TerminalStream
	Metadata wire.TerminalMetadata

	// History is the session's persistent scrollback. Nil gets a
	// fresh buffer, losing replay across reattaches.
	History *HistoryBuffer
}

// TerminalBackend attaches clients to running terminal sessions.
// terminalType names the session kind the client asked for (shell,
// agent, ...); backends that serve a single kind may ignore it.
type TerminalBackend interface {
	Attach(ctx context.Context, sessionID, terminalType string, columns, rows uint16) (*TerminalSession, error)
}

// PTYStream adapts a PTY master file to TerminalStream. Resize uses
// TIOCSWINSZ, which delivers SIGWINCH to the process group on the
// slave side.
type PTYStream struct {
	Master *os.File
}

func (s *PTYStream) Read(p []byte) (int, error)  { return s.Master.Read(p) }
func (s *PTYStream) Write(p []byte) (int, error) { return s.Master.Write(p) }
func (s *PTYStream) Close() error                { return s.Master.Close() }

func (s *PTYStream) Resize(columns, rows uint16) error {
	return unix.IoctlSetWinsize(int(s.Master.Fd()), unix.TIOCSWINSZ, &unix.Winsize{
		Col: columns,
		Row: rows,
	})
}

// terminalConn is the framed transport the relay speaks; satisfied by
// the WebSocket wrapper and by in-memory test pipes.
type terminalConn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// RelayTerminal runs one attachment to completion: metadata frame,
// compressed history replay, then bidirectional copy until either side
// closes. The stream is closed on return; the session's history buffer
// survives for the next attachment.
func RelayTerminal(conn terminalConn, session *TerminalSession, logger *slog.Logger) error {
	history := session.History
	if history == nil {
		history = NewHistoryBuffer(DefaultHistorySize)
	}

	metadataJSON, err := json.Marshal(session.Metadata)
	if err != nil {
		return fmt.Errorf("host: marshal terminal metadata: %w", err)
	}
	if err := conn.WriteMessage(wire.EncodeFrame(wire.Frame{Type: wire.FrameMetadata, Payload: metadataJSON})); err != nil {
		return fmt.Errorf("host: send terminal metadata: %w", err)
	}

	// History goes out even when empty; the client treats it as the
	// start-of-output marker.
	if err := conn.WriteMessage(wire.EncodeFrame(wire.NewHistoryFrame(history.Snapshot()))); err != nil {
		return fmt.Errorf("host: send terminal history: %w", err)
	}

	done := make(chan struct{})
	var doneOnce sync.Once
	finish := func() { doneOnce.Do(func() { close(done) }) }

	var relayWait sync.WaitGroup

	// Stream output → history + data frames.
	relayWait.Add(1)
	go func() {
		defer relayWait.Done()
		defer finish()
		buffer := make([]byte, 4096)
		for {
			n, readErr := session.Stream.Read(buffer)
			if n > 0 {
				history.Write(buffer[:n])
				if writeErr := conn.WriteMessage(wire.EncodeFrame(wire.NewDataFrame(buffer[:n]))); writeErr != nil {
					return
				}
			}
			if readErr != nil {
				// EIO is the usual end of a PTY whose slave side
				// closed; any read error ends the relay.
				return
			}
		}
	}()

	// Client frames → keystrokes and resizes.
	relayWait.Add(1)
	go func() {
		defer relayWait.Done()
		defer finish()
		for {
			data, readErr := conn.ReadMessage()
			if readErr != nil {
				return
			}
			frame, decodeErr := wire.DecodeFrame(data)
			if decodeErr != nil {
				logger.Warn("malformed terminal frame", "error", decodeErr)
				continue
			}
			switch frame.Type {
			case wire.FrameData:
				if len(frame.Payload) == 0 {
					continue
				}
				if _, writeErr := session.Stream.Write(frame.Payload); writeErr != nil {
					return
				}
			case wire.FrameResize:
				columns, rows, parseErr := wire.ParseResizePayload(frame.Payload)
				if parseErr != nil {
					logger.Warn("malformed resize payload", "error", parseErr)
					continue
				}
				if resizeErr := session.Stream.Resize(columns, rows); resizeErr != nil {
					// The stream is likely gone; let the reader side
					// notice and finish.
					logger.Debug("resize failed", "error", resizeErr)
				}
			}
		}
	}()

	<-done
	conn.Close()
	session.Stream.Close()
	relayWait.Wait()
	return nil
}
