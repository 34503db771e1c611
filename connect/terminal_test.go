// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package connect

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/tetherhq/tether/wire"
)

func terminalQuery(t *testing.T, rawURL string) url.Values {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse terminal URL %q: %v", rawURL, err)
	}
	return parsed.Query()
}

func TestTerminalURLCarriesAttachParams(t *testing.T) {
	params := Params{Host: "localhost", Port: 8080, Token: "secret"}

	query := terminalQuery(t, params.TerminalURL("s1", "agent", 120, 40))
	want := map[string]string{
		"token":     "secret",
		"sessionId": "s1",
		"type":      "agent",
		"cols":      "120",
		"rows":      "40",
	}
	for key, value := range want {
		if got := query.Get(key); got != value {
			t.Errorf("query %s = %q, want %q", key, got, value)
		}
	}
}

func TestTerminalURLDefaultsType(t *testing.T) {
	params := Params{Host: "localhost", Port: 8080, Token: "secret"}

	query := terminalQuery(t, params.TerminalURL("s1", "", 80, 24))
	if got := query.Get("type"); got != wire.DefaultTerminalType {
		t.Fatalf("query type = %q, want %q", got, wire.DefaultTerminalType)
	}
}

// terminalScript is an in-memory terminal Socket preloaded with frames
// to serve; writes are collected for inspection.
type terminalScript struct {
	frames [][]byte
	writes [][]byte
	done   chan struct{}
}

func newTerminalScript(frames ...[]byte) *terminalScript {
	return &terminalScript{frames: frames, done: make(chan struct{})}
}

func (s *terminalScript) ReadMessage() ([]byte, error) {
	if len(s.frames) > 0 {
		frame := s.frames[0]
		s.frames = s.frames[1:]
		return frame, nil
	}
	<-s.done
	return nil, context.Canceled
}

func (s *terminalScript) WriteMessage(data []byte) error {
	s.writes = append(s.writes, data)
	return nil
}

func (s *terminalScript) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

// terminalScriptDialer hands out one scripted socket and records the
// URL it was dialed with.
type terminalScriptDialer struct {
	socket   *terminalScript
	dialedTo string
}

func (d *terminalScriptDialer) Dial(ctx context.Context, socketURL string) (Socket, error) {
	d.dialedTo = socketURL
	return d.socket, nil
}

func TestAttachTerminalHandshake(t *testing.T) {
	metadata := wire.TerminalMetadata{SessionID: "s1", Type: "agent", Command: "bash", Columns: 120, Rows: 40}
	payload, err := json.Marshal(metadata)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	dialer := &terminalScriptDialer{socket: newTerminalScript(
		wire.EncodeFrame(wire.Frame{Type: wire.FrameMetadata, Payload: payload}),
	)}

	var output bytes.Buffer
	session, err := AttachTerminal(context.Background(), TerminalConfig{
		Params:    Params{Host: "localhost", Port: 8080, Token: "secret"},
		SessionID: "s1",
		Type:      "agent",
		Columns:   120,
		Rows:      40,
		Output:    &output,
		Dialer:    dialer,
	})
	if err != nil {
		t.Fatalf("AttachTerminal: %v", err)
	}
	defer session.Close()

	query := terminalQuery(t, dialer.dialedTo)
	if got := query.Get("type"); got != "agent" {
		t.Fatalf("dialed type = %q, want agent", got)
	}
	if got := session.Metadata(); got != metadata {
		t.Fatalf("metadata = %+v, want %+v", got, metadata)
	}
}
