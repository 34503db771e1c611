// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"context"
	"errors"
	"time"

	"github.com/tetherhq/tether/wire"
)

// watchPollInterval is how often watched session logs are checked for
// appends.
const watchPollInterval = time.Second

// watchSession starts pushing appends for one session. Entries already
// in the log are not replayed; the client pages for those.
func (c *connection) watchSession(workspace, sessionID string) {
	existing, err := c.server.source.EntriesSince(workspace, sessionID, 0)
	if err != nil {
		c.logger.Info("watch refused", "workspace", workspace, "session", sessionID, "error", err)
		c.writeError(wire.TypeError, "", err.Error())
		return
	}

	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.watched == nil {
		c.watched = make(map[watchKey]int)
	}
	c.watched[watchKey{workspace, sessionID}] = len(existing)
}

func (c *connection) unwatchSession(workspace, sessionID string) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	delete(c.watched, watchKey{workspace, sessionID})
}

// watchLoop polls watched sessions until the connection ends.
func (c *connection) watchLoop(ctx context.Context) {
	ticker := c.server.clock.NewTicker(watchPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollWatches()
		}
	}
}

func (c *connection) pollWatches() {
	c.watchMu.Lock()
	snapshot := make(map[watchKey]int, len(c.watched))
	for key, delivered := range c.watched {
		snapshot[key] = delivered
	}
	c.watchMu.Unlock()

	for key, delivered := range snapshot {
		entries, err := c.server.source.EntriesSince(key.workspace, key.sessionID, delivered)
		if err != nil {
			// A session log deleted mid-watch stops the watch; other
			// errors are transient and retried next tick.
			if errors.Is(err, ErrNotFound) {
				c.unwatchSession(key.workspace, key.sessionID)
			}
			continue
		}
		if len(entries) == 0 {
			continue
		}

		c.watchMu.Lock()
		current, stillWatched := c.watched[key]
		if stillWatched && current == delivered {
			c.watched[key] = delivered + len(entries)
		}
		c.watchMu.Unlock()
		if !stillWatched || current != delivered {
			continue
		}

		c.server.metrics.PushesTotal.WithLabelValues(wire.TypeSessionUpdate).Inc()
		c.write(wire.TypeSessionUpdate, "", wire.SessionUpdate{
			Workspace: key.workspace,
			SessionID: key.sessionID,
			Entries:   entries,
		})
	}
}
