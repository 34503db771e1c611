// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tetherhq/tether/lib/git"
	"github.com/tetherhq/tether/lib/netutil"
	"github.com/tetherhq/tether/wire"
)

// connection is one authenticated control channel.
type connection struct {
	server   *Server
	socket   *wsTransport
	clientID string
	logger   *slog.Logger

	watchMu sync.Mutex
	// watched maps each observed session to the entry count already
	// delivered; the poller pushes everything past it.
	watched map[watchKey]int
}

type watchKey struct {
	workspace string
	sessionID string
}

// run authenticates and serves one connection until the socket closes.
func (c *connection) run(ctx context.Context) {
	if !c.authenticate() {
		c.server.metrics.AuthFailures.Inc()
		c.socket.Close()
		return
	}

	c.logger = c.logger.With("client_id", c.clientID)
	c.logger.Info("client connected")
	c.server.metrics.ActiveConnections.Inc()
	defer c.server.metrics.ActiveConnections.Dec()
	defer c.logger.Info("client disconnected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.watchLoop(ctx)

	for {
		data, err := c.socket.ReadMessage()
		if err != nil {
			if !netutil.IsExpectedCloseError(err) {
				c.logger.Warn("control read", "error", err)
			}
			return
		}
		c.handle(ctx, data)
	}
}

// authenticate enforces the first-frame contract: an auth message with
// a valid token inside the handshake window, or the connection dies.
func (c *connection) authenticate() bool {
	deadline := c.server.clock.Now().Add(c.server.handshakeTimeout)
	c.socket.SetReadDeadline(deadline)
	defer c.socket.SetReadDeadline(time.Time{})

	data, err := c.socket.ReadMessage()
	if err != nil {
		c.logger.Info("no auth frame before deadline", "error", err)
		return false
	}
	message, err := wire.Decode(data)
	if err != nil || message.Type != wire.TypeAuth || message.Auth == nil {
		c.writeError(wire.TypeError, "", "expected auth")
		return false
	}

	clientID, err := c.server.auth.Verify(message.Auth.Token)
	if err != nil {
		c.writeError(wire.TypeError, "", "authentication failed")
		return false
	}
	c.clientID = clientID
	return c.write(wire.TypeAuthSuccess, "", wire.AuthSuccess{ClientID: clientID})
}

// handle dispatches one inbound frame.
func (c *connection) handle(ctx context.Context, data []byte) {
	message, err := wire.Decode(data)
	if err != nil {
		if errors.Is(err, wire.ErrUnknownType) {
			c.server.metrics.FramesTotal.WithLabelValues("unknown").Inc()
			c.writeError(wire.ResponseType(message.Type), message.ID, fmt.Sprintf("unknown message type %q", message.Type))
			return
		}
		c.logger.Warn("malformed frame", "error", err)
		c.writeError(wire.TypeError, "", "malformed frame")
		return
	}
	c.server.metrics.FramesTotal.WithLabelValues(message.Type).Inc()

	switch message.Type {
	case wire.TypePing:
		c.server.metrics.Heartbeats.Inc()
		c.write(wire.TypePong, message.ID, wire.Pong{Timestamp: c.server.clock.Now().UnixMilli()})

	case wire.TypeListWorkspaces:
		c.respond(message, func() (any, error) {
			workspaces, err := c.server.source.Workspaces()
			if err != nil {
				return nil, err
			}
			return wire.WorkspaceList{Workspaces: workspaces}, nil
		})

	case wire.TypeSessionPage:
		c.respond(message, func() (any, error) {
			request := message.PageRequest
			limit := c.server.clampPageSize(request.Limit)
			return c.server.source.Page(request.Workspace, request.SessionID, limit, request.BeforeIndex)
		})

	case wire.TypeWatchSession:
		c.watchSession(message.Watch.Workspace, message.Watch.SessionID)

	case wire.TypeUnwatchSession:
		c.unwatchSession(message.Unwatch.Workspace, message.Unwatch.SessionID)

	case wire.TypeFileTree:
		c.respond(message, func() (any, error) {
			request := message.TreeRequest
			path, err := c.server.resolveTreePath(request.Path)
			if err != nil {
				return nil, err
			}
			depth, nodes := c.server.clampTreeLimits(request.MaxDepth, request.MaxNodes)
			return BuildFileTree(path, depth, nodes)
		})

	case wire.TypeFileTreeExpand:
		c.respond(message, func() (any, error) {
			request := message.ExpandRequest
			_, nodes := c.server.clampTreeLimits(0, request.MaxNodes)
			return ExpandFileTree(c.server.workspaceRoot, request.Path, nodes)
		})

	case wire.TypeGitStatus:
		c.respond(message, func() (any, error) {
			path, err := c.server.resolveTreePath(message.StatusRequest.Path)
			if err != nil {
				return nil, err
			}
			files, err := git.NewRepository(path).Status(ctx)
			if err != nil {
				return nil, err
			}
			return wire.GitStatusList{Files: files}, nil
		})

	case wire.TypeGitFileDiff:
		c.respond(message, func() (any, error) {
			request := message.DiffRequest
			path, err := c.server.resolveTreePath(request.Path)
			if err != nil {
				return nil, err
			}
			diff, err := git.NewRepository(path).FileDiff(ctx, request.FilePath, request.Staged)
			if err != nil {
				return nil, err
			}
			return wire.GitFileDiff{FilePath: request.FilePath, Diff: diff}, nil
		})

	default:
		// Decoded but not addressed to the host (a response type or a
		// host-to-client push echoed back).
		c.logger.Warn("unhandled message type", "type", message.Type)
		c.writeError(wire.ResponseType(message.Type), message.ID, fmt.Sprintf("unhandled message type %q", message.Type))
	}
}

// respond runs a handler and writes its result or error under the
// request's correlation id.
func (c *connection) respond(message wire.Message, handler func() (any, error)) {
	payload, err := handler()
	if err != nil {
		c.logger.Info("request failed", "type", message.Type, "error", err)
		c.writeError(wire.ResponseType(message.Type), message.ID, err.Error())
		return
	}
	c.write(wire.ResponseType(message.Type), message.ID, payload)
}

func (c *connection) write(messageType, id string, payload any) bool {
	frame, err := wire.Encode(messageType, id, payload)
	if err != nil {
		c.logger.Error("encode frame", "type", messageType, "error", err)
		return false
	}
	if err := c.socket.WriteMessage(frame); err != nil {
		if !netutil.IsExpectedCloseError(err) {
			c.logger.Warn("control write", "type", messageType, "error", err)
		}
		return false
	}
	return true
}

func (c *connection) writeError(messageType, id, errorMessage string) {
	frame, err := wire.EncodeError(messageType, id, errorMessage)
	if err != nil {
		c.logger.Error("encode error frame", "error", err)
		return
	}
	if err := c.socket.WriteMessage(frame); err != nil && !netutil.IsExpectedCloseError(err) {
		c.logger.Warn("control write", "type", messageType, "error", err)
	}
}
