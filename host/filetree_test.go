// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tetherhq/tether/wire"
)

// populateTree lays out:
//
//	root/
//	  .git/config          (ignored)
//	  cmd/
//	    main.go
//	  internal/
//	    deep/
//	      leaf.go
//	  README.md
func populateTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{".git", "cmd", filepath.Join("internal", "deep")} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	files := map[string]string{
		filepath.Join(".git", "config"):                "[core]",
		filepath.Join("cmd", "main.go"):                "package main",
		filepath.Join("internal", "deep", "leaf.go"):   "package deep",
		"README.md":                                    "# readme",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return root
}

func findChild(node wire.FileNode, name string) (wire.FileNode, bool) {
	for _, child := range node.Children {
		if child.Name == name {
			return child, true
		}
	}
	return wire.FileNode{}, false
}

func TestBuildFileTree(t *testing.T) {
	root := populateTree(t)
	response, err := BuildFileTree(root, 3, 100)
	if err != nil {
		t.Fatalf("BuildFileTree: %v", err)
	}
	if response.Truncated {
		t.Errorf("Truncated = true for a tiny tree")
	}
	if response.RootPath != root {
		t.Errorf("RootPath = %q, want %q", response.RootPath, root)
	}

	if _, found := findChild(response.Tree, ".git"); found {
		t.Errorf(".git not filtered out")
	}

	// Directories sort before files.
	if len(response.Tree.Children) != 3 {
		t.Fatalf("root children = %+v", response.Tree.Children)
	}
	if response.Tree.Children[0].Name != "cmd" || response.Tree.Children[2].Name != "README.md" {
		t.Errorf("child order = %v, %v, %v",
			response.Tree.Children[0].Name, response.Tree.Children[1].Name, response.Tree.Children[2].Name)
	}

	internal, _ := findChild(response.Tree, "internal")
	deep, found := findChild(internal, "deep")
	if !found {
		t.Fatalf("internal/deep missing")
	}
	leaf, found := findChild(deep, "leaf.go")
	if !found {
		t.Fatalf("leaf.go missing at depth 3")
	}
	if leaf.Size == 0 {
		t.Errorf("leaf.go size = 0")
	}
}

func TestBuildFileTreeDepthCutoff(t *testing.T) {
	root := populateTree(t)
	response, err := BuildFileTree(root, 1, 100)
	if err != nil {
		t.Fatalf("BuildFileTree: %v", err)
	}

	internal, found := findChild(response.Tree, "internal")
	if !found {
		t.Fatalf("internal missing")
	}
	if internal.Children != nil {
		t.Errorf("children present beyond the depth budget: %+v", internal.Children)
	}
	if !internal.HasChildren {
		t.Errorf("HasChildren = false for a non-empty cut-off directory")
	}
}

func TestBuildFileTreeNodeBudget(t *testing.T) {
	root := populateTree(t)
	response, err := BuildFileTree(root, 3, 2)
	if err != nil {
		t.Fatalf("BuildFileTree: %v", err)
	}
	if !response.Truncated {
		t.Errorf("Truncated = false under a 2-node budget")
	}
	if !response.Tree.HasChildren {
		t.Errorf("truncated root does not advertise more children")
	}
}

func TestBuildFileTreeAccessDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits do not bind root")
	}
	root := populateTree(t)
	locked := filepath.Join(root, "locked")
	if err := os.Mkdir(locked, 0o000); err != nil {
		t.Fatalf("mkdir locked: %v", err)
	}
	defer os.Chmod(locked, 0o755)

	response, err := BuildFileTree(root, 3, 100)
	if err != nil {
		t.Fatalf("BuildFileTree: %v", err)
	}
	node, found := findChild(response.Tree, "locked")
	if !found {
		t.Fatalf("locked directory missing")
	}
	if !node.AccessDenied {
		t.Errorf("AccessDenied = false")
	}
	if len(response.AccessErrors) != 1 || response.AccessErrors[0] != locked {
		t.Errorf("AccessErrors = %v, want [%s]", response.AccessErrors, locked)
	}
}

func TestExpandFileTree(t *testing.T) {
	root := populateTree(t)
	response, err := ExpandFileTree(root, filepath.Join(root, "internal"), 100)
	if err != nil {
		t.Fatalf("ExpandFileTree: %v", err)
	}
	if len(response.Children) != 1 || response.Children[0].Name != "deep" {
		t.Fatalf("children = %+v", response.Children)
	}
	// The grandchild directory is probed, not descended into.
	if !response.Children[0].HasChildren {
		t.Errorf("deep.HasChildren = false")
	}
	if response.Children[0].Children != nil {
		t.Errorf("grandchildren included: %+v", response.Children[0].Children)
	}
}

func TestExpandFileTreeEmptyDirectory(t *testing.T) {
	root := populateTree(t)
	if err := os.Mkdir(filepath.Join(root, "bare"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	response, err := ExpandFileTree(root, filepath.Join(root, "bare"), 100)
	if err != nil {
		t.Fatalf("ExpandFileTree: %v", err)
	}
	if response.Children == nil || len(response.Children) != 0 {
		t.Fatalf("children = %#v, want empty non-nil slice", response.Children)
	}
}

func TestExpandFileTreeRejectsEscape(t *testing.T) {
	root := populateTree(t)
	for _, path := range []string{"/etc", filepath.Join(root, ".."), filepath.Dir(root)} {
		if _, err := ExpandFileTree(root, path, 100); err == nil {
			t.Errorf("ExpandFileTree(%q) succeeded, want escape rejection", path)
		}
	}
}

func TestExpandFileTreeOnFile(t *testing.T) {
	root := populateTree(t)
	if _, err := ExpandFileTree(root, filepath.Join(root, "README.md"), 100); err == nil ||
		!strings.Contains(err.Error(), "not a directory") {
		t.Fatalf("error = %v, want not-a-directory", err)
	}
}
