// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tetherhq/tether/wire"
)

// initRepo creates a git repository with one committed file and returns
// its path.
func initRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		command := exec.Command("git", append([]string{"-C", dir}, args...)...)
		command.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@test.local",
			"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@test.local",
		)
		if output, err := command.CombinedOutput(); err != nil {
			t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, output)
		}
	}

	run("init")
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("hello\n"), 0644); err != nil {
		t.Fatalf("write README: %v", err)
	}
	run("add", "README")
	run("commit", "-m", "initial")
	return dir
}

func TestRepositoryStatus(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := initRepo(t)
	repository := NewRepository(dir)
	ctx := context.Background()

	// Clean repository has no status entries.
	files, err := repository.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("clean repository status = %+v, want empty", files)
	}

	// An edit shows up unstaged; a new file shows up untracked.
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("changed\n"), 0644); err != nil {
		t.Fatalf("edit README: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "extra.txt"), []byte("new\n"), 0644); err != nil {
		t.Fatalf("write extra.txt: %v", err)
	}

	files, err = repository.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	byPath := make(map[string]wire.GitFileStatus)
	for _, file := range files {
		byPath[file.Path] = file
	}
	if got := byPath["README"]; got.Status != wire.GitModified || got.Staged {
		t.Fatalf("README = %+v, want unstaged modified", got)
	}
	if got := byPath["extra.txt"]; got.Status != wire.GitUntracked {
		t.Fatalf("extra.txt = %+v, want untracked", got)
	}
}

func TestRepositoryFileDiff(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := initRepo(t)
	repository := NewRepository(dir)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("changed\n"), 0644); err != nil {
		t.Fatalf("edit README: %v", err)
	}

	diff, err := repository.FileDiff(ctx, "README", false)
	if err != nil {
		t.Fatalf("FileDiff: %v", err)
	}
	if !strings.Contains(diff, "+changed") {
		t.Fatalf("unstaged diff missing +changed:\n%s", diff)
	}

	// Staged diff is empty until the change is added to the index.
	diff, err = repository.FileDiff(ctx, "README", true)
	if err != nil {
		t.Fatalf("FileDiff staged: %v", err)
	}
	if strings.TrimSpace(diff) != "" {
		t.Fatalf("staged diff before add should be empty, got:\n%s", diff)
	}
}

func TestRepositoryRunReportsStderr(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	repository := NewRepository(t.TempDir())
	_, err := repository.Run(context.Background(), "status")
	if err == nil {
		t.Fatal("Run in a non-repository should fail")
	}
	if !strings.Contains(err.Error(), "stderr") {
		t.Fatalf("error should include stderr: %v", err)
	}
}
