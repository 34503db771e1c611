// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"
	"fmt"
)

// Control channel message types. Requests that expect exactly one
// reply use the request type plus the "_response" suffix.
const (
	TypeAuth        = "auth"
	TypeAuthSuccess = "auth_success"
	TypePing        = "ping"
	TypePong        = "pong"

	TypeListWorkspaces = "list_workspaces"
	TypeSessionPage    = "get_session_messages_page"
	TypeWatchSession   = "watch_session"
	TypeUnwatchSession = "unwatch_session"
	TypeSessionUpdate  = "session_update"

	TypeFileTree       = "file_tree"
	TypeFileTreeExpand = "file_tree_expand"

	TypeGitStatus   = "git_status"
	TypeGitFileDiff = "git_file_diff"

	TypeError = "error"
)

// ResponseSuffix distinguishes reply types from request types.
const ResponseSuffix = "_response"

// ResponseType returns the reply type for a request type.
func ResponseType(requestType string) string {
	return requestType + ResponseSuffix
}

// Envelope is the JSON frame exchanged on the control channel in both
// directions. Exactly one logical message per envelope.
type Envelope struct {
	// Type discriminates the payload carried in Data.
	Type string `json:"type"`

	// ID correlates a response to its request. Empty on unsolicited
	// pushes.
	ID string `json:"id,omitempty"`

	// Data is the typed payload, decoded by Decode according to Type.
	Data json.RawMessage `json:"data,omitempty"`

	// Error is set on failed responses and on error pushes. A response
	// with a non-empty Error has no Data.
	Error string `json:"error,omitempty"`

	// Timestamp is the sender's clock in Unix milliseconds. Set on
	// ping/pong for round-trip measurement; optional elsewhere.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Encode marshals an envelope carrying payload as its Data. A nil
// payload produces an envelope with no Data field.
func Encode(messageType, id string, payload any) ([]byte, error) {
	envelope := Envelope{Type: messageType, ID: id}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("wire: marshal %s payload: %w", messageType, err)
		}
		envelope.Data = data
	}
	frame, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %s envelope: %w", messageType, err)
	}
	return frame, nil
}

// EncodeError marshals a failed response: type, correlation id, and an
// error string with no payload.
func EncodeError(messageType, id, message string) ([]byte, error) {
	frame, err := json.Marshal(Envelope{Type: messageType, ID: id, Error: message})
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %s error envelope: %w", messageType, err)
	}
	return frame, nil
}

// ServerError is an application-level error reported by the host,
// either as a failed response or an unsolicited error push. Transport
// code surfaces it to the caller; it never closes the connection.
type ServerError struct {
	// MessageType is the envelope type the error arrived on.
	MessageType string

	// Message is the host's description of the failure.
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("host: %s: %s", e.MessageType, e.Message)
}
