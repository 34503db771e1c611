// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "strings"

// AuthRequest is the first frame a client must send after the socket
// opens. The host closes the connection if it does not arrive promptly
// or the token is rejected.
type AuthRequest struct {
	Token string `json:"token"`
}

// AuthSuccess acknowledges a valid token. Receiving it is what moves
// the client to the connected state; socket open alone never does.
type AuthSuccess struct {
	// ClientID is the host-assigned identifier for this connection.
	ClientID string `json:"clientId"`
}

// Ping carries the sender's clock so the pong can be matched to the
// heartbeat that sent it.
type Ping struct {
	Timestamp int64 `json:"timestamp"`
}

// Pong echoes the ping timestamp.
type Pong struct {
	Timestamp int64 `json:"timestamp"`
}

// WorkspaceInfo describes one workspace available on the host.
type WorkspaceInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`

	// Sessions is the number of recorded agent sessions.
	Sessions int `json:"sessions"`

	// LastActive is the Unix-millisecond timestamp of the most recent
	// session activity. Zero when the workspace has no sessions.
	LastActive int64 `json:"lastActive,omitempty"`
}

// WorkspaceList is the list_workspaces_response payload.
type WorkspaceList struct {
	Workspaces []WorkspaceInfo `json:"workspaces"`
}

// EntryRole classifies a transcript entry.
type EntryRole string

const (
	RoleUser       EntryRole = "user"
	RoleAssistant  EntryRole = "assistant"
	RoleToolUse    EntryRole = "tool_use"
	RoleToolResult EntryRole = "tool_result"
	RoleSystem     EntryRole = "system"
)

// toolResultSuffix links a tool_result entry back to its tool_use: the
// result's UUID is the tool_use UUID with this suffix appended.
const toolResultSuffix = "-result"

// TranscriptEntry is one message in a session's append-only log. UUIDs
// are unique within a session; entries are ordered by arrival.
type TranscriptEntry struct {
	UUID      string    `json:"uuid"`
	Role      EntryRole `json:"type"`
	Content   string    `json:"content"`
	Timestamp int64     `json:"timestamp"`

	// ToolName and ToolInput are set only on tool_use entries.
	ToolName  string `json:"toolName,omitempty"`
	ToolInput string `json:"toolInput,omitempty"`
}

// ToolUseID returns the UUID of the tool_use entry a tool_result pairs
// with, and whether this entry is a tool_result at all.
func (e TranscriptEntry) ToolUseID() (string, bool) {
	if e.Role != RoleToolResult {
		return "", false
	}
	return strings.TrimSuffix(e.UUID, toolResultSuffix), true
}

// ToolResultID returns the UUID a tool_use entry's result will carry.
func ToolResultID(toolUseID string) string {
	return toolUseID + toolResultSuffix
}

// PageRequest asks for a window of a session transcript. A nil
// BeforeIndex means "initial load": the latest page, replacing any
// window the client holds. A non-nil BeforeIndex asks for the entries
// strictly before that index (scroll-back).
type PageRequest struct {
	Workspace string `json:"workspace"`
	SessionID string `json:"sessionId"`
	Limit     int    `json:"limit,omitempty"`
	// BeforeIndex is the pagination cursor. Omitted on initial loads.
	BeforeIndex *int `json:"beforeIndex,omitempty"`
}

// PageResponse carries one transcript page in chronological order.
type PageResponse struct {
	Messages []TranscriptEntry `json:"messages"`

	// HasMore reports whether entries older than this page exist.
	HasMore bool `json:"hasMore"`

	// OldestIndex is the log index of the first entry in Messages.
	OldestIndex int `json:"oldestIndex"`

	// IsInitial mirrors the request: true when the client should
	// replace its window rather than prepend.
	IsInitial bool `json:"isInitial"`
}

// WatchSession subscribes the connection to live transcript appends
// for one session. Appends arrive as session_update pushes until an
// unwatch_session with the same coordinates, or disconnect.
type WatchSession struct {
	Workspace string `json:"workspace"`
	SessionID string `json:"sessionId"`
}

// SessionUpdate is an unsolicited push of freshly appended entries.
type SessionUpdate struct {
	Workspace string            `json:"workspace"`
	SessionID string            `json:"sessionId"`
	Entries   []TranscriptEntry `json:"entries"`
}

// NodeType distinguishes files from directories.
type NodeType string

const (
	NodeFile      NodeType = "file"
	NodeDirectory NodeType = "directory"
)

// FileNode is one entry in a file tree. Directory children beyond the
// requested depth are omitted with HasChildren set, so the client can
// expand them lazily.
type FileNode struct {
	Name string   `json:"name"`
	Path string   `json:"path"`
	Type NodeType `json:"type"`

	// Size in bytes; files only.
	Size int64 `json:"size,omitempty"`

	// Children of a directory, ordered directories-first then by name.
	// Omitted when the directory was not descended into.
	Children []FileNode `json:"children,omitempty"`

	// HasChildren marks a directory that has entries the response does
	// not include.
	HasChildren bool `json:"hasChildren,omitempty"`

	// AccessDenied marks a directory the host could not read.
	AccessDenied bool `json:"accessDenied,omitempty"`
}

// FileTreeRequest asks for a fresh tree rooted at Path (workspace root
// when empty), bounded by depth and total node count.
type FileTreeRequest struct {
	Path     string `json:"path,omitempty"`
	MaxDepth int    `json:"maxDepth,omitempty"`
	MaxNodes int    `json:"maxNodes,omitempty"`
}

// FileTreeResponse carries a bounded tree snapshot.
type FileTreeResponse struct {
	Tree     FileNode `json:"tree"`
	RootPath string   `json:"rootPath"`

	// Truncated is true when MaxNodes stopped the walk anywhere.
	Truncated bool `json:"truncated"`

	// AccessErrors lists directory paths the walk could not read.
	AccessErrors []string `json:"accessErrors,omitempty"`
}

// FileTreeExpandRequest asks for the children of one directory that an
// earlier tree response left unloaded.
type FileTreeExpandRequest struct {
	Path     string `json:"path"`
	RootPath string `json:"rootPath,omitempty"`
	MaxDepth int    `json:"maxDepth,omitempty"`
	MaxNodes int    `json:"maxNodes,omitempty"`
}

// FileTreeExpandResponse carries the children of the expanded path.
type FileTreeExpandResponse struct {
	Path         string     `json:"path"`
	Children     []FileNode `json:"children"`
	Truncated    bool       `json:"truncated"`
	AccessErrors []string   `json:"accessErrors,omitempty"`
}

// GitStatus classifies one changed file.
type GitStatus string

const (
	GitModified  GitStatus = "modified"
	GitAdded     GitStatus = "added"
	GitDeleted   GitStatus = "deleted"
	GitUntracked GitStatus = "untracked"
	GitRenamed   GitStatus = "renamed"
)

// GitFileStatus is one line of repository status. Renamed entries
// always carry OldPath.
type GitFileStatus struct {
	Path   string    `json:"path"`
	Status GitStatus `json:"status"`

	// Staged is true exactly when the index column of the porcelain
	// line denotes the change, not the working-tree column.
	Staged bool `json:"staged"`

	OldPath string `json:"oldPath,omitempty"`
}

// GitStatusRequest asks for repository status. Path selects a
// workspace; empty means the default workspace.
type GitStatusRequest struct {
	Path string `json:"path,omitempty"`
}

// GitStatusList is the git_status_response payload.
type GitStatusList struct {
	Files []GitFileStatus `json:"files"`
}

// GitFileDiffRequest asks for one file's diff, staged or unstaged.
type GitFileDiffRequest struct {
	FilePath string `json:"filePath"`
	Staged   bool   `json:"staged"`
	Path     string `json:"path,omitempty"`
}

// GitFileDiff is the git_file_diff_response payload.
type GitFileDiff struct {
	FilePath string `json:"filePath"`
	Diff     string `json:"diff"`
}
