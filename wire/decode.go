// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType is returned by Decode for a well-formed envelope whose
// type is not part of the protocol. Dispatchers log and drop these;
// they are never fatal to the connection.
var ErrUnknownType = errors.New("wire: unknown message type")

// ErrMalformedFrame is returned by Decode when the bytes are not a
// valid envelope or the payload does not match the envelope type.
var ErrMalformedFrame = errors.New("wire: malformed frame")

// Message is one decoded control-channel frame. Type is always set;
// exactly one payload field matching Type is non-nil, except for
// payload-free requests (list_workspaces) and failed responses, which
// carry Failure instead of a payload.
type Message struct {
	Type      string
	ID        string
	Timestamp int64

	// Failure is set when the envelope reported an error instead of a
	// payload. The remaining payload fields are nil.
	Failure *ServerError

	// Client → host.
	Auth          *AuthRequest
	Ping          *Ping
	PageRequest   *PageRequest
	Watch         *WatchSession
	Unwatch       *WatchSession
	TreeRequest   *FileTreeRequest
	ExpandRequest *FileTreeExpandRequest
	StatusRequest *GitStatusRequest
	DiffRequest   *GitFileDiffRequest

	// Host → client.
	AuthSuccess *AuthSuccess
	Pong        *Pong
	Workspaces  *WorkspaceList
	Page        *PageResponse
	Update      *SessionUpdate
	Tree        *FileTreeResponse
	Expand      *FileTreeExpandResponse
	GitStatus   *GitStatusList
	Diff        *GitFileDiff
}

// Decode parses a raw control-channel frame into the closed message
// union. All payload validation happens here, at the boundary, so
// handlers never touch raw JSON.
func Decode(raw []byte) (Message, error) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if envelope.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}

	message := Message{
		Type:      envelope.Type,
		ID:        envelope.ID,
		Timestamp: envelope.Timestamp,
	}

	// A failed response or an error push carries no payload.
	if envelope.Error != "" || envelope.Type == TypeError {
		message.Failure = &ServerError{
			MessageType: envelope.Type,
			Message:     envelope.Error,
		}
		return message, nil
	}

	var err error
	switch envelope.Type {
	case TypeAuth:
		message.Auth, err = decodePayload[AuthRequest](envelope)
	case TypeAuthSuccess:
		message.AuthSuccess, err = decodePayload[AuthSuccess](envelope)
	case TypePing:
		message.Ping, err = decodePayload[Ping](envelope)
	case TypePong:
		message.Pong, err = decodePayload[Pong](envelope)
	case TypeListWorkspaces:
		// No payload.
	case ResponseType(TypeListWorkspaces):
		message.Workspaces, err = decodePayload[WorkspaceList](envelope)
	case TypeSessionPage:
		message.PageRequest, err = decodePayload[PageRequest](envelope)
	case ResponseType(TypeSessionPage):
		message.Page, err = decodePayload[PageResponse](envelope)
	case TypeWatchSession:
		message.Watch, err = decodePayload[WatchSession](envelope)
	case TypeUnwatchSession:
		message.Unwatch, err = decodePayload[WatchSession](envelope)
	case TypeSessionUpdate:
		message.Update, err = decodePayload[SessionUpdate](envelope)
	case TypeFileTree:
		message.TreeRequest, err = decodePayload[FileTreeRequest](envelope)
	case ResponseType(TypeFileTree):
		message.Tree, err = decodePayload[FileTreeResponse](envelope)
	case TypeFileTreeExpand:
		message.ExpandRequest, err = decodePayload[FileTreeExpandRequest](envelope)
	case ResponseType(TypeFileTreeExpand):
		message.Expand, err = decodePayload[FileTreeExpandResponse](envelope)
	case TypeGitStatus:
		message.StatusRequest, err = decodePayload[GitStatusRequest](envelope)
	case ResponseType(TypeGitStatus):
		message.GitStatus, err = decodePayload[GitStatusList](envelope)
	case TypeGitFileDiff:
		message.DiffRequest, err = decodePayload[GitFileDiffRequest](envelope)
	case ResponseType(TypeGitFileDiff):
		message.Diff, err = decodePayload[GitFileDiff](envelope)
	default:
		return message, fmt.Errorf("%w: %q", ErrUnknownType, envelope.Type)
	}
	if err != nil {
		return Message{}, err
	}
	return message, nil
}

// decodePayload unmarshals the envelope's Data into a fresh T. A
// missing Data field yields the zero value, so payload-optional
// requests decode without special cases.
func decodePayload[T any](envelope Envelope) (*T, error) {
	var value T
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &value); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformedFrame, envelope.Type, err)
		}
	}
	return &value, nil
}
