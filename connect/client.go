// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package connect

import (
	"context"
	"fmt"

	"github.com/tetherhq/tether/events"
	"github.com/tetherhq/tether/filetree"
	"github.com/tetherhq/tether/transcript"
	"github.com/tetherhq/tether/wire"
)

// Client layers typed workspace operations on a Manager and keeps the
// client-side caches consistent with what the host has sent. All
// methods are safe for concurrent use.
type Client struct {
	manager     *Manager
	transcripts *transcript.Store
	tree        *filetree.Cache

	// cleanup collects per-watch teardown so Close can unsubscribe
	// everything in one call.
	cleanup events.Releaser
}

// NewClient wraps an existing Manager. The client registers itself for
// session_update pushes; at most one Client per Manager.
func NewClient(manager *Manager) *Client {
	c := &Client{
		manager:     manager,
		transcripts: transcript.NewStore(),
		tree:        filetree.NewCache(),
	}
	manager.RegisterPushHandler(wire.TypeSessionUpdate, c.handleSessionUpdate)
	return c
}

// Manager returns the underlying connection manager.
func (c *Client) Manager() *Manager { return c.manager }

// Transcripts returns the per-session transcript windows.
func (c *Client) Transcripts() *transcript.Store { return c.transcripts }

// FileTree returns the lazily loaded file tree cache.
func (c *Client) FileTree() *filetree.Cache { return c.tree }

// ListWorkspaces fetches the workspaces the host exposes.
func (c *Client) ListWorkspaces(ctx context.Context) ([]wire.WorkspaceInfo, error) {
	response, err := c.manager.Request(ctx, wire.TypeListWorkspaces, nil)
	if err != nil {
		return nil, err
	}
	if response.Workspaces == nil {
		return nil, fmt.Errorf("connect: list_workspaces response missing payload")
	}
	return response.Workspaces.Workspaces, nil
}

// LoadSessionPage fetches the next older page for a session, opening
// its window on first use. The first call loads the newest entries;
// subsequent calls extend the window backwards until HasMoreOlder
// reports false.
func (c *Client) LoadSessionPage(ctx context.Context, workspace, sessionID string, limit int) (*transcript.Window, error) {
	window := c.transcripts.Open(workspace, sessionID)
	request := window.NextRequest(workspace, sessionID, limit)
	response, err := c.manager.Request(ctx, wire.TypeSessionPage, request)
	if err != nil {
		return nil, err
	}
	if response.Page == nil {
		return nil, fmt.Errorf("connect: %s response missing payload", wire.TypeSessionPage)
	}
	if err := window.ApplyPage(*response.Page); err != nil {
		return nil, err
	}
	return window, nil
}

// WatchSession subscribes to live appends for a session. Entries
// arriving as session_update pushes land in the session's window and
// are republished on TopicSessionUpdate.
func (c *Client) WatchSession(workspace, sessionID string) error {
	c.transcripts.Open(workspace, sessionID)
	err := c.manager.Send(wire.TypeWatchSession, wire.WatchSession{
		Workspace: workspace,
		SessionID: sessionID,
	})
	if err != nil {
		return err
	}
	c.cleanup.Add(func() {
		// Often already disconnected at close time; the host drops
		// watches with the connection anyway.
		_ = c.UnwatchSession(workspace, sessionID)
	})
	return nil
}

// UnwatchSession stops live appends for a session. The window and its
// loaded entries stay until CloseSession.
func (c *Client) UnwatchSession(workspace, sessionID string) error {
	return c.manager.Send(wire.TypeUnwatchSession, wire.WatchSession{
		Workspace: workspace,
		SessionID: sessionID,
	})
}

// CloseSession discards a session's window and everything it loaded.
func (c *Client) CloseSession(workspace, sessionID string) {
	c.transcripts.Close(workspace, sessionID)
}

// Close unsubscribes every active watch and drops all cached windows.
// The Manager and its connection are left alone; callers disconnect
// separately.
func (c *Client) Close() {
	c.cleanup.Release()
	c.transcripts.CloseAll()
}

func (c *Client) handleSessionUpdate(message wire.Message) {
	if message.Update == nil {
		return
	}
	update := message.Update
	if window, ok := c.transcripts.Get(update.Workspace, update.SessionID); ok {
		window.Append(update.Entries)
	}
	c.manager.Events().Publish(TopicSessionUpdate, *update)
}

// LoadFileTree fetches a fresh tree snapshot and resets the cache to
// it. Zero limits leave the bounds to the host's defaults.
func (c *Client) LoadFileTree(ctx context.Context, path string, maxDepth, maxNodes int) error {
	response, err := c.manager.Request(ctx, wire.TypeFileTree, wire.FileTreeRequest{
		Path:     path,
		MaxDepth: maxDepth,
		MaxNodes: maxNodes,
	})
	if err != nil {
		return err
	}
	if response.Tree == nil {
		return fmt.Errorf("connect: %s response missing payload", wire.TypeFileTree)
	}
	c.tree.SetRoot(*response.Tree)
	return nil
}

// ExpandDirectory loads and expands one directory. When the children
// are already cached or another expand of the same path is in flight
// this is a no-op.
func (c *Client) ExpandDirectory(ctx context.Context, path string) error {
	if !c.tree.TryMarkLoading(path) {
		return nil
	}
	response, err := c.manager.Request(ctx, wire.TypeFileTreeExpand, wire.FileTreeExpandRequest{
		Path:     path,
		RootPath: c.tree.RootPath(),
	})
	if err != nil {
		c.tree.ClearLoading(path)
		return err
	}
	if response.Expand == nil {
		c.tree.ClearLoading(path)
		return fmt.Errorf("connect: %s response missing payload", wire.TypeFileTreeExpand)
	}
	return c.tree.ApplyExpand(*response.Expand)
}

// CollapseDirectory collapses a directory and frees its cached
// subtree. Re-expanding fetches fresh children from the host.
func (c *Client) CollapseDirectory(path string) {
	c.tree.Collapse(path)
}

// GitStatus fetches repository status for a workspace. An empty path
// selects the host's default workspace.
func (c *Client) GitStatus(ctx context.Context, path string) ([]wire.GitFileStatus, error) {
	response, err := c.manager.Request(ctx, wire.TypeGitStatus, wire.GitStatusRequest{Path: path})
	if err != nil {
		return nil, err
	}
	if response.GitStatus == nil {
		return nil, fmt.Errorf("connect: %s response missing payload", wire.TypeGitStatus)
	}
	return response.GitStatus.Files, nil
}

// GitFileDiff fetches one file's diff, staged or unstaged.
func (c *Client) GitFileDiff(ctx context.Context, filePath string, staged bool, path string) (string, error) {
	response, err := c.manager.Request(ctx, wire.TypeGitFileDiff, wire.GitFileDiffRequest{
		FilePath: filePath,
		Staged:   staged,
		Path:     path,
	})
	if err != nil {
		return "", err
	}
	if response.Diff == nil {
		return "", fmt.Errorf("connect: %s response missing payload", wire.TypeGitFileDiff)
	}
	return response.Diff.Diff, nil
}
