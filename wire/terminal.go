// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Terminal channel frame types. Each WebSocket binary message on the
// terminal channel carries exactly one frame: a 5-byte header (1 byte
// type + 4 byte big-endian payload length) followed by the payload.
const (
	// FrameData carries raw terminal bytes. Bidirectional: output flows
	// host→client, input flows client→host. Payload is opaque bytes
	// passed through unmodified.
	FrameData byte = 0x01

	// FrameResize carries terminal dimensions. Client→host only.
	// Payload is 4 bytes: columns (uint16 big-endian) then rows.
	FrameResize byte = 0x02

	// FrameHistory carries the zstd-compressed scrollback ring buffer.
	// Host→client only, sent once on connect before live data.
	FrameHistory byte = 0x03

	// FrameMetadata carries session information as JSON. Host→client
	// only, sent once on connect before history.
	FrameMetadata byte = 0x04
)

// frameHeaderLength is the fixed frame header size: 1 byte type +
// 4 bytes payload length.
const frameHeaderLength = 5

// maxFramePayload bounds a single frame payload. 16 MB is generous for
// terminal data; a compressed 1 MB scrollback dump is typical.
const maxFramePayload = 16 * 1024 * 1024

// Frame is a single terminal channel frame.
type Frame struct {
	Type    byte
	Payload []byte
}

// EncodeFrame serializes a frame into the wire format.
func EncodeFrame(frame Frame) []byte {
	encoded := make([]byte, frameHeaderLength+len(frame.Payload))
	encoded[0] = frame.Type
	binary.BigEndian.PutUint32(encoded[1:5], uint32(len(frame.Payload)))
	copy(encoded[frameHeaderLength:], frame.Payload)
	return encoded
}

// DecodeFrame parses one frame from a WebSocket binary message.
// Returns an error when the header is short, the declared length does
// not match the message, or the payload exceeds maxFramePayload.
func DecodeFrame(data []byte) (Frame, error) {
	if len(data) < frameHeaderLength {
		return Frame{}, fmt.Errorf("wire: terminal frame shorter than header: %d bytes", len(data))
	}
	payloadLength := binary.BigEndian.Uint32(data[1:5])
	if payloadLength > maxFramePayload {
		return Frame{}, fmt.Errorf("wire: terminal payload length %d exceeds maximum %d", payloadLength, maxFramePayload)
	}
	if int(payloadLength) != len(data)-frameHeaderLength {
		return Frame{}, fmt.Errorf("wire: terminal payload length %d does not match frame size %d", payloadLength, len(data)-frameHeaderLength)
	}
	return Frame{Type: data[0], Payload: data[frameHeaderLength:]}, nil
}

// NewDataFrame wraps raw terminal bytes.
func NewDataFrame(data []byte) Frame {
	return Frame{Type: FrameData, Payload: data}
}

// NewResizeFrame encodes terminal dimensions.
func NewResizeFrame(columns, rows uint16) Frame {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint16(payload[0:2], columns)
	binary.BigEndian.PutUint16(payload[2:4], rows)
	return Frame{Type: FrameResize, Payload: payload}
}

// ParseResizePayload extracts columns and rows from a resize frame
// payload. Returns an error unless the payload is exactly 4 bytes.
func ParseResizePayload(payload []byte) (columns, rows uint16, err error) {
	if len(payload) != 4 {
		return 0, 0, fmt.Errorf("wire: resize payload must be 4 bytes, got %d", len(payload))
	}
	return binary.BigEndian.Uint16(payload[0:2]), binary.BigEndian.Uint16(payload[2:4]), nil
}

// DefaultTerminalType is assumed when the upgrade request omits the
// type query parameter.
const DefaultTerminalType = "shell"

// TerminalMetadata is the JSON structure carried by metadata frames.
type TerminalMetadata struct {
	// SessionID identifies the terminal session on the host.
	SessionID string `json:"sessionId"`

	// Type is the terminal kind the backend resolved for this
	// attachment (shell, agent, ...).
	Type string `json:"type,omitempty"`

	// Command is the program running in the session.
	Command string `json:"command,omitempty"`

	// Columns and Rows are the host-side dimensions at connect time.
	Columns uint16 `json:"cols"`
	Rows    uint16 `json:"rows"`
}

var (
	historyEncoder *zstd.Encoder
	historyDecoder *zstd.Decoder
)

func init() {
	var err error
	historyEncoder, err = zstd.NewWriter(nil)
	if err != nil {
		panic("wire: zstd encoder initialization failed: " + err.Error())
	}
	historyDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("wire: zstd decoder initialization failed: " + err.Error())
	}
}

// NewHistoryFrame compresses a scrollback dump into a history frame.
// Terminal scrollback is highly repetitive; zstd typically shrinks a
// 1 MB dump by an order of magnitude.
func NewHistoryFrame(history []byte) Frame {
	return Frame{Type: FrameHistory, Payload: historyEncoder.EncodeAll(history, nil)}
}

// DecodeHistory decompresses a history frame payload.
func DecodeHistory(payload []byte) ([]byte, error) {
	history, err := historyDecoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("wire: decompress history: %w", err)
	}
	return history, nil
}
