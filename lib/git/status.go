// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"strings"

	"github.com/tetherhq/tether/wire"
)

// ParseStatus turns "git status --porcelain" output into typed change
// records. Each line is "XY PATH", or "XY OLD -> NEW" for renames,
// where X is the index column and Y the working-tree column.
//
// A line can show a staged and an unstaged change at once (e.g. "MM").
// Classification priority resolves such lines in favor of the staged
// status: rename, then staged add/delete/modify, then unstaged
// modify/delete, then untracked, then unstaged add. Staged is true
// exactly when the index column denotes the reported change.
func ParseStatus(output string) []wire.GitFileStatus {
	var files []wire.GitFileStatus
	for _, line := range strings.Split(output, "\n") {
		if status, ok := parseStatusLine(line); ok {
			files = append(files, status)
		}
	}
	return files
}

// parseStatusLine classifies a single porcelain line. Returns false for
// blank or unparseable lines.
func parseStatusLine(line string) (wire.GitFileStatus, bool) {
	if len(line) < 4 {
		return wire.GitFileStatus{}, false
	}
	index := line[0]
	workingTree := line[1]
	path := line[3:]

	// Renames carry both sides of the move: "R  old -> new".
	if index == 'R' || workingTree == 'R' {
		oldPath, newPath, found := strings.Cut(path, " -> ")
		if !found {
			return wire.GitFileStatus{}, false
		}
		return wire.GitFileStatus{
			Path:    newPath,
			Status:  wire.GitRenamed,
			Staged:  index == 'R',
			OldPath: oldPath,
		}, true
	}

	switch index {
	case 'A':
		return wire.GitFileStatus{Path: path, Status: wire.GitAdded, Staged: true}, true
	case 'D':
		return wire.GitFileStatus{Path: path, Status: wire.GitDeleted, Staged: true}, true
	case 'M':
		return wire.GitFileStatus{Path: path, Status: wire.GitModified, Staged: true}, true
	}

	switch workingTree {
	case 'M':
		return wire.GitFileStatus{Path: path, Status: wire.GitModified, Staged: false}, true
	case 'D':
		return wire.GitFileStatus{Path: path, Status: wire.GitDeleted, Staged: false}, true
	}

	if index == '?' && workingTree == '?' {
		return wire.GitFileStatus{Path: path, Status: wire.GitUntracked, Staged: false}, true
	}

	if workingTree == 'A' {
		return wire.GitFileStatus{Path: path, Status: wire.GitAdded, Staged: false}, true
	}

	return wire.GitFileStatus{}, false
}
