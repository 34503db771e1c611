// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tetherhq/tether/wire"
)

// ErrNotFound marks a workspace or session that does not exist.
var ErrNotFound = errors.New("host: not found")

// TranscriptSource provides session transcripts to the control
// channel. Implementations must be safe for concurrent use.
type TranscriptSource interface {
	// Workspaces lists what the host exposes.
	Workspaces() ([]wire.WorkspaceInfo, error)

	// Page returns one transcript window. A nil before cursor means
	// the latest page; otherwise the page strictly before that index.
	Page(workspace, sessionID string, limit int, before *int) (wire.PageResponse, error)

	// EntriesSince returns entries at or after fromIndex, for live
	// watch. An empty slice means nothing new.
	EntriesSince(workspace, sessionID string, fromIndex int) ([]wire.TranscriptEntry, error)
}

// sessionsSubdir is where a workspace keeps its session logs,
// relative to the workspace directory.
var sessionsSubdir = filepath.Join(".tether", "sessions")

const sessionFileSuffix = ".jsonl"

// FileStore is a TranscriptSource backed by JSONL files: one file per
// session, one entry per line, append-only. Workspaces are the
// immediate subdirectories of the root.
type FileStore struct {
	root string
}

// NewFileStore exposes the workspaces under root.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) Workspaces() ([]wire.WorkspaceInfo, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("host: read workspace root: %w", err)
	}

	var workspaces []wire.WorkspaceInfo
	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() || strings.HasPrefix(dirEntry.Name(), ".") {
			continue
		}
		info := wire.WorkspaceInfo{
			Name: dirEntry.Name(),
			Path: filepath.Join(s.root, dirEntry.Name()),
		}
		sessions, _ := os.ReadDir(filepath.Join(info.Path, sessionsSubdir))
		for _, session := range sessions {
			if session.IsDir() || !strings.HasSuffix(session.Name(), sessionFileSuffix) {
				continue
			}
			info.Sessions++
			if stat, err := session.Info(); err == nil {
				if modified := stat.ModTime().UnixMilli(); modified > info.LastActive {
					info.LastActive = modified
				}
			}
		}
		workspaces = append(workspaces, info)
	}
	sort.Slice(workspaces, func(i, j int) bool {
		return workspaces[i].Name < workspaces[j].Name
	})
	return workspaces, nil
}

func (s *FileStore) Page(workspace, sessionID string, limit int, before *int) (wire.PageResponse, error) {
	entries, err := s.readSession(workspace, sessionID)
	if err != nil {
		return wire.PageResponse{}, err
	}
	if limit <= 0 {
		limit = len(entries)
	}

	end := len(entries)
	initial := before == nil
	if !initial {
		end = *before
		if end < 0 {
			end = 0
		}
		if end > len(entries) {
			end = len(entries)
		}
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	return wire.PageResponse{
		Messages:    entries[start:end],
		HasMore:     start > 0,
		OldestIndex: start,
		IsInitial:   initial,
	}, nil
}

func (s *FileStore) EntriesSince(workspace, sessionID string, fromIndex int) ([]wire.TranscriptEntry, error) {
	entries, err := s.readSession(workspace, sessionID)
	if err != nil {
		return nil, err
	}
	if fromIndex < 0 {
		fromIndex = 0
	}
	if fromIndex >= len(entries) {
		return nil, nil
	}
	return entries[fromIndex:], nil
}

// readSession loads one session log in full. Session files are small
// enough (a conversation, not a database) that a full read per request
// beats the bookkeeping of partial reads.
func (s *FileStore) readSession(workspace, sessionID string) ([]wire.TranscriptEntry, error) {
	if err := validatePathComponent(workspace); err != nil {
		return nil, err
	}
	if err := validatePathComponent(sessionID); err != nil {
		return nil, err
	}

	path := filepath.Join(s.root, workspace, sessionsSubdir, sessionID+sessionFileSuffix)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: session %s/%s", ErrNotFound, workspace, sessionID)
		}
		return nil, fmt.Errorf("host: open session log: %w", err)
	}
	defer file.Close()

	var entries []wire.TranscriptEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry wire.TranscriptEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("host: session %s/%s line %d: %w", workspace, sessionID, lineNumber, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("host: read session log: %w", err)
	}
	return entries, nil
}

// validatePathComponent rejects names that could escape the workspace
// root.
func validatePathComponent(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: invalid name %q", ErrNotFound, name)
	}
	return nil
}
