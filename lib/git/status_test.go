// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"testing"

	"github.com/tetherhq/tether/wire"
)

func TestParseStatusClassification(t *testing.T) {
	tests := []struct {
		name string
		line string
		want wire.GitFileStatus
	}{
		{
			name: "staged modify",
			line: "M  file1.txt",
			want: wire.GitFileStatus{Path: "file1.txt", Status: wire.GitModified, Staged: true},
		},
		{
			name: "unstaged modify",
			line: " M file2.txt",
			want: wire.GitFileStatus{Path: "file2.txt", Status: wire.GitModified, Staged: false},
		},
		{
			name: "untracked",
			line: "?? file3.txt",
			want: wire.GitFileStatus{Path: "file3.txt", Status: wire.GitUntracked, Staged: false},
		},
		{
			name: "staged add",
			line: "A  new.go",
			want: wire.GitFileStatus{Path: "new.go", Status: wire.GitAdded, Staged: true},
		},
		{
			name: "staged delete",
			line: "D  gone.go",
			want: wire.GitFileStatus{Path: "gone.go", Status: wire.GitDeleted, Staged: true},
		},
		{
			name: "unstaged delete",
			line: " D gone.go",
			want: wire.GitFileStatus{Path: "gone.go", Status: wire.GitDeleted, Staged: false},
		},
		{
			name: "rename",
			line: "R  old.go -> new.go",
			want: wire.GitFileStatus{Path: "new.go", Status: wire.GitRenamed, Staged: true, OldPath: "old.go"},
		},
		{
			name: "staged and unstaged modify reports staged",
			line: "MM both.go",
			want: wire.GitFileStatus{Path: "both.go", Status: wire.GitModified, Staged: true},
		},
		{
			name: "staged add with unstaged modify reports staged add",
			line: "AM addmod.go",
			want: wire.GitFileStatus{Path: "addmod.go", Status: wire.GitAdded, Staged: true},
		},
		{
			name: "intent-to-add",
			line: " A intent.go",
			want: wire.GitFileStatus{Path: "intent.go", Status: wire.GitAdded, Staged: false},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, ok := parseStatusLine(test.line)
			if !ok {
				t.Fatalf("parseStatusLine(%q) rejected the line", test.line)
			}
			if got != test.want {
				t.Fatalf("parseStatusLine(%q) = %+v, want %+v", test.line, got, test.want)
			}
		})
	}
}

func TestParseStatusMultipleLines(t *testing.T) {
	output := "M  file1.txt\n M file2.txt\n?? file3.txt\n"
	files := ParseStatus(output)
	if len(files) != 3 {
		t.Fatalf("parsed %d files, want 3", len(files))
	}
	if !files[0].Staged || files[0].Status != wire.GitModified {
		t.Fatalf("file1 = %+v, want staged modified", files[0])
	}
	if files[1].Staged || files[1].Status != wire.GitModified {
		t.Fatalf("file2 = %+v, want unstaged modified", files[1])
	}
	if files[2].Status != wire.GitUntracked {
		t.Fatalf("file3 = %+v, want untracked", files[2])
	}
}

func TestParseStatusSkipsNoise(t *testing.T) {
	if files := ParseStatus("\n\nxx\n"); files != nil {
		t.Fatalf("ParseStatus on noise = %+v, want nil", files)
	}
}

func TestParseStatusRenameInvariant(t *testing.T) {
	files := ParseStatus("R  a/old.txt -> b/new.txt\n")
	if len(files) != 1 {
		t.Fatalf("parsed %d files, want 1", len(files))
	}
	if files[0].OldPath == "" {
		t.Fatal("renamed entry must carry OldPath")
	}
}
