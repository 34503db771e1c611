// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tetherhq/tether/wire"
)

// ignoredDirs are never descended into or listed. They dominate node
// budgets while carrying nothing a remote viewer needs.
var ignoredDirs = map[string]bool{
	".git":         true,
	".tether":      true,
	"node_modules": true,
}

// treeBuilder walks a directory tree under depth and node budgets,
// accumulating unreadable paths instead of failing the walk.
type treeBuilder struct {
	maxDepth     int
	maxNodes     int
	nodes        int
	truncated    bool
	accessErrors []string
}

// BuildFileTree returns a bounded snapshot rooted at root.
func BuildFileTree(root string, maxDepth, maxNodes int) (wire.FileTreeResponse, error) {
	absolute, err := filepath.Abs(root)
	if err != nil {
		return wire.FileTreeResponse{}, fmt.Errorf("host: resolve tree root: %w", err)
	}
	info, err := os.Stat(absolute)
	if err != nil {
		return wire.FileTreeResponse{}, fmt.Errorf("%w: %s", ErrNotFound, root)
	}
	if !info.IsDir() {
		return wire.FileTreeResponse{}, fmt.Errorf("host: tree root %s is not a directory", root)
	}

	builder := &treeBuilder{maxDepth: maxDepth, maxNodes: maxNodes}
	tree := builder.walk(absolute, filepath.Base(absolute), 0)
	return wire.FileTreeResponse{
		Tree:         tree,
		RootPath:     absolute,
		Truncated:    builder.truncated,
		AccessErrors: builder.accessErrors,
	}, nil
}

// ExpandFileTree returns the immediate children of one directory that
// an earlier snapshot left unloaded. The path must stay inside root.
func ExpandFileTree(root, path string, maxNodes int) (wire.FileTreeExpandResponse, error) {
	absolute, err := resolveWithin(root, path)
	if err != nil {
		return wire.FileTreeExpandResponse{}, err
	}
	info, err := os.Stat(absolute)
	if err != nil {
		return wire.FileTreeExpandResponse{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if !info.IsDir() {
		return wire.FileTreeExpandResponse{}, fmt.Errorf("host: %s is not a directory", path)
	}

	// Depth 1 relative to the expanded directory: just its children,
	// with grandchildren probed for expandability.
	builder := &treeBuilder{maxDepth: 1, maxNodes: maxNodes}
	node := builder.walk(absolute, filepath.Base(absolute), 0)
	if node.AccessDenied {
		return wire.FileTreeExpandResponse{}, fmt.Errorf("host: read %s: permission denied", path)
	}
	children := node.Children
	if children == nil {
		children = []wire.FileNode{}
	}
	return wire.FileTreeExpandResponse{
		Path:         absolute,
		Children:     children,
		Truncated:    builder.truncated,
		AccessErrors: builder.accessErrors,
	}, nil
}

// walk builds the node for path. Beyond the depth budget directories
// are probed, not descended.
func (b *treeBuilder) walk(path, name string, depth int) wire.FileNode {
	b.nodes++
	node := wire.FileNode{
		Name: name,
		Path: path,
		Type: wire.NodeDirectory,
	}

	dirEntries, err := os.ReadDir(path)
	if err != nil {
		node.AccessDenied = true
		b.accessErrors = append(b.accessErrors, path)
		return node
	}
	dirEntries = filterIgnored(dirEntries)

	if depth >= b.maxDepth {
		node.HasChildren = len(dirEntries) > 0
		return node
	}

	sortEntries(dirEntries)
	node.Children = []wire.FileNode{}
	for _, dirEntry := range dirEntries {
		if b.nodes >= b.maxNodes {
			b.truncated = true
			node.HasChildren = true
			break
		}
		childPath := filepath.Join(path, dirEntry.Name())
		if dirEntry.IsDir() {
			node.Children = append(node.Children, b.walk(childPath, dirEntry.Name(), depth+1))
			continue
		}
		b.nodes++
		child := wire.FileNode{
			Name: dirEntry.Name(),
			Path: childPath,
			Type: wire.NodeFile,
		}
		if info, err := dirEntry.Info(); err == nil {
			child.Size = info.Size()
		}
		node.Children = append(node.Children, child)
	}
	return node
}

func filterIgnored(dirEntries []os.DirEntry) []os.DirEntry {
	kept := dirEntries[:0]
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() && ignoredDirs[dirEntry.Name()] {
			continue
		}
		kept = append(kept, dirEntry)
	}
	return kept
}

// sortEntries orders directories first, then lexically. This matches
// what file viewers render, so the wire order is the display order.
func sortEntries(dirEntries []os.DirEntry) {
	sort.Slice(dirEntries, func(i, j int) bool {
		if dirEntries[i].IsDir() != dirEntries[j].IsDir() {
			return dirEntries[i].IsDir()
		}
		return dirEntries[i].Name() < dirEntries[j].Name()
	})
}

// resolveWithin resolves path and rejects anything that escapes root.
func resolveWithin(root, path string) (string, error) {
	rootAbsolute, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("host: resolve root: %w", err)
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("host: resolve path: %w", err)
	}
	relative, err := filepath.Rel(rootAbsolute, absolute)
	if err != nil || relative == ".." || strings.HasPrefix(relative, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the workspace root", ErrNotFound, path)
	}
	return absolute, nil
}
