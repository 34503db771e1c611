// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package filetree maintains the client's partially-materialized view
// of the host's directory tree. Directories load lazily: the cache
// records which paths have been fetched, which are in flight, and
// which the host refused, so the UI can expand on demand without
// re-requesting what it already holds.
package filetree

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tetherhq/tether/wire"
)

// Node is one cached tree entry. The nil/empty distinction on Children
// is load state: nil means the directory has never been fetched; an
// empty non-nil slice means it was fetched and was empty (or the fetch
// was denied). HasChildren survives a collapse so re-expanding is
// recognized as a fetch, not assumed empty.
type Node struct {
	Name         string
	Path         string
	Type         wire.NodeType
	Size         int64
	HasChildren  bool
	AccessDenied bool
	Children     []*Node
}

// Loaded reports whether this directory's children have been fetched.
func (n *Node) Loaded() bool {
	return n.Children != nil
}

// Cache is the client-side file tree state. It has a single writer
// (the message dispatcher); observers read snapshots.
//
// Cache is safe for concurrent use.
type Cache struct {
	mu sync.Mutex

	root     *Node
	rootPath string

	// index maps path → node for every materialized node.
	index map[string]*Node

	// truncated is a global flag: some response hit its node budget.
	truncated bool

	// accessErrors accumulates denied paths as a union across every
	// response in this tree's lifetime; independent expansions each
	// contribute their own denials.
	accessErrors map[string]struct{}

	expanded map[string]bool
	loading  map[string]bool
}

// NewCache returns an empty cache awaiting a root tree load.
func NewCache() *Cache {
	cache := &Cache{}
	cache.reset()
	return cache
}

func (c *Cache) reset() {
	c.root = nil
	c.rootPath = ""
	c.index = make(map[string]*Node)
	c.truncated = false
	c.accessErrors = make(map[string]struct{})
	c.expanded = make(map[string]bool)
	c.loading = make(map[string]bool)
}

// SetRoot installs a fresh tree from a file_tree response, discarding
// all previous expansion, loading, truncation, and access-error state.
func (c *Cache) SetRoot(response wire.FileTreeResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
	c.rootPath = response.RootPath
	c.truncated = response.Truncated
	for _, path := range response.AccessErrors {
		c.accessErrors[path] = struct{}{}
	}
	c.root = c.fromWire(response.Tree)
}

// fromWire converts a wire node subtree and registers it in the index.
func (c *Cache) fromWire(source wire.FileNode) *Node {
	node := &Node{
		Name:         source.Name,
		Path:         source.Path,
		Type:         source.Type,
		Size:         source.Size,
		HasChildren:  source.HasChildren,
		AccessDenied: source.AccessDenied,
	}
	if source.Children != nil {
		node.Children = make([]*Node, 0, len(source.Children))
		for _, child := range source.Children {
			node.Children = append(node.Children, c.fromWire(child))
		}
	}
	c.index[node.Path] = node
	return node
}

// NeedsLoad reports whether toggling path open requires a network
// request: it is a known directory whose children were never fetched
// (or were freed by a collapse) and no fetch is in flight.
func (c *Cache) NeedsLoad(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.index[path]
	if !ok || node.Type != wire.NodeDirectory {
		return false
	}
	return node.Children == nil && !c.loading[path]
}

// TryMarkLoading atomically claims the expand request for path: it
// returns true and records the in-flight marker only when path is an
// unloaded directory with no fetch already in flight. Concurrent
// callers race on the cache lock; exactly one wins.
func (c *Cache) TryMarkLoading(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.index[path]
	if !ok || node.Type != wire.NodeDirectory {
		return false
	}
	if node.Children != nil || c.loading[path] {
		return false
	}
	c.loading[path] = true
	return true
}

// ClearLoading drops the in-flight marker after a failed expand so the
// directory can be retried.
func (c *Cache) ClearLoading(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.loading, path)
}

// ApplyExpand folds a file_tree_expand response into the tree. The
// expanded directory's children become loaded (possibly loaded-empty),
// the global truncation flag absorbs the response's, and new access
// errors join the accumulated set.
func (c *Cache) ApplyExpand(response wire.FileTreeExpandResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.loading, response.Path)

	node, ok := c.index[response.Path]
	if !ok {
		return fmt.Errorf("filetree: expand response for unknown path %q", response.Path)
	}
	if node.Type != wire.NodeDirectory {
		return fmt.Errorf("filetree: expand response for non-directory %q", response.Path)
	}

	// Even an empty response marks the directory as loaded: nil
	// children would re-trigger a fetch forever.
	node.Children = make([]*Node, 0, len(response.Children))
	for _, child := range response.Children {
		node.Children = append(node.Children, c.fromWire(child))
	}
	c.expanded[response.Path] = true

	if response.Truncated {
		c.truncated = true
	}
	for _, path := range response.AccessErrors {
		c.accessErrors[path] = struct{}{}
	}
	return nil
}

// Collapse frees the subtree under path while remembering that the
// directory has children, so a future expand issues a fresh request
// instead of assuming empty.
func (c *Cache) Collapse(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.index[path]
	if !ok || node.Type != wire.NodeDirectory {
		return
	}

	if node.Children != nil {
		if len(node.Children) > 0 {
			node.HasChildren = true
		}
		for _, child := range node.Children {
			c.forget(child)
		}
		node.Children = nil
	}
	delete(c.expanded, path)
	delete(c.loading, path)
}

// forget removes a subtree from the index and per-path state maps.
func (c *Cache) forget(node *Node) {
	delete(c.index, node.Path)
	delete(c.expanded, node.Path)
	delete(c.loading, node.Path)
	for _, child := range node.Children {
		c.forget(child)
	}
}

// Root returns the current tree root, or nil before the first load.
// The returned nodes are the cache's own; treat them as read-only.
func (c *Cache) Root() *Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.root
}

// RootPath returns the host path the tree is rooted at.
func (c *Cache) RootPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rootPath
}

// Lookup returns the cached node for path.
func (c *Cache) Lookup(path string) (*Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	node, ok := c.index[path]
	return node, ok
}

// IsExpanded reports whether path is currently expanded.
func (c *Cache) IsExpanded(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expanded[path]
}

// Truncated reports whether any response in this tree's lifetime hit
// its node budget.
func (c *Cache) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.truncated
}

// AccessErrors returns the accumulated denied paths, sorted.
func (c *Cache) AccessErrors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	paths := make([]string, 0, len(c.accessErrors))
	for path := range c.accessErrors {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
