// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed access to the git CLI for the host's
// repository handlers: status listings and per-file diffs. All commands
// target a specific repository directory via the -C flag, which every
// Repository method injects automatically.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tetherhq/tether/wire"
)

// Repository represents a git repository at a specific directory. All
// operations target this directory via "git -C <dir>". There is no
// default directory — callers always say which repository they mean.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Status returns the repository's changed files as typed records,
// parsed from "git status --porcelain".
func (r *Repository) Status(ctx context.Context) ([]wire.GitFileStatus, error) {
	output, err := r.Run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return ParseStatus(output), nil
}

// FileDiff returns the diff for a single file. With staged true the
// diff is taken against the index (what "git diff --cached" shows);
// otherwise against the working tree.
func (r *Repository) FileDiff(ctx context.Context, filePath string, staged bool) (string, error) {
	args := []string{"diff"}
	if staged {
		args = append(args, "--cached")
	}
	args = append(args, "--", filePath)
	return r.Run(ctx, args...)
}
