// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"errors"
	"testing"
)

func TestDecodeAuthSuccess(t *testing.T) {
	frame, err := Encode(TypeAuthSuccess, "", AuthSuccess{ClientID: "client-7"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	message, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if message.Type != TypeAuthSuccess {
		t.Fatalf("Type = %q, want %q", message.Type, TypeAuthSuccess)
	}
	if message.AuthSuccess == nil || message.AuthSuccess.ClientID != "client-7" {
		t.Fatalf("AuthSuccess = %+v, want ClientID client-7", message.AuthSuccess)
	}
}

func TestDecodeCarriesCorrelationID(t *testing.T) {
	frame, err := Encode(ResponseType(TypeGitStatus), "req-42", GitStatusList{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	message, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if message.ID != "req-42" {
		t.Fatalf("ID = %q, want req-42", message.ID)
	}
	if message.GitStatus == nil {
		t.Fatal("GitStatus payload not decoded")
	}
}

func TestDecodePageRequestCursor(t *testing.T) {
	before := 120
	frame, err := Encode(TypeSessionPage, "req-1", PageRequest{
		Workspace:   "proj",
		SessionID:   "session-a",
		Limit:       50,
		BeforeIndex: &before,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	message, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	request := message.PageRequest
	if request == nil {
		t.Fatal("PageRequest not decoded")
	}
	if request.BeforeIndex == nil || *request.BeforeIndex != 120 {
		t.Fatalf("BeforeIndex = %v, want 120", request.BeforeIndex)
	}

	// Omitting the cursor must decode to nil, not zero: nil signals an
	// initial load, zero is a valid cursor.
	frame, err = Encode(TypeSessionPage, "req-2", PageRequest{Workspace: "proj", SessionID: "session-a"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	message, err = Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if message.PageRequest.BeforeIndex != nil {
		t.Fatalf("BeforeIndex = %v, want nil for initial load", message.PageRequest.BeforeIndex)
	}
}

func TestDecodePayloadFreeRequest(t *testing.T) {
	frame, err := Encode(TypeListWorkspaces, "req-3", nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	message, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if message.Type != TypeListWorkspaces || message.ID != "req-3" {
		t.Fatalf("message = %+v, want list_workspaces/req-3", message)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	message, err := Decode([]byte(`{"type":"telepathy"}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
	// The type survives so the dispatcher can log what it dropped.
	if message.Type != "telepathy" {
		t.Fatalf("Type = %q, want telepathy", message.Type)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, raw := range []string{
		"not json",
		`{"data":{}}`,
		`{"type":"pong","data":"not an object"}`,
	} {
		if _, err := Decode([]byte(raw)); !errors.Is(err, ErrMalformedFrame) {
			t.Fatalf("Decode(%q) err = %v, want ErrMalformedFrame", raw, err)
		}
	}
}

func TestDecodeFailedResponse(t *testing.T) {
	frame, err := EncodeError(ResponseType(TypeGitFileDiff), "req-9", "no such file")
	if err != nil {
		t.Fatalf("EncodeError: %v", err)
	}
	message, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if message.Failure == nil {
		t.Fatal("Failure not set on a failed response")
	}
	if message.Failure.Message != "no such file" {
		t.Fatalf("Failure.Message = %q, want %q", message.Failure.Message, "no such file")
	}
	if message.Diff != nil {
		t.Fatal("failed response must not carry a payload")
	}
}

func TestDecodeErrorPush(t *testing.T) {
	message, err := Decode([]byte(`{"type":"error","error":"agent crashed"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if message.Failure == nil || message.Failure.Message != "agent crashed" {
		t.Fatalf("Failure = %+v, want agent crashed", message.Failure)
	}
}

func TestToolResultPairing(t *testing.T) {
	use := TranscriptEntry{UUID: "tool-123", Role: RoleToolUse, ToolName: "bash"}
	result := TranscriptEntry{UUID: ToolResultID(use.UUID), Role: RoleToolResult}

	id, ok := result.ToolUseID()
	if !ok || id != use.UUID {
		t.Fatalf("ToolUseID = (%q, %v), want (%q, true)", id, ok, use.UUID)
	}

	if _, ok := use.ToolUseID(); ok {
		t.Fatal("ToolUseID on a tool_use entry should report false")
	}
}
