// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tetherhq/tether/lib/clock"
	"github.com/tetherhq/tether/lib/config"
	"github.com/tetherhq/tether/wire"
)

// ServerConfig wires a Server. Config is required; everything else has
// a production default.
type ServerConfig struct {
	Config *config.Config

	// Source overrides the JSONL file store rooted at the configured
	// workspace root.
	Source TranscriptSource

	// Auth overrides the authenticator built from Config.Auth.
	Auth Authenticator

	// Terminals serves the /terminal endpoint. Nil rejects terminal
	// attachments.
	Terminals TerminalBackend

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics defaults to a fresh registry.
	Metrics *Metrics
}

// Server is the tether host: control upgrades on /ws, terminal
// upgrades on /terminal.
type Server struct {
	source           TranscriptSource
	auth             Authenticator
	terminals        TerminalBackend
	clock            clock.Clock
	logger           *slog.Logger
	metrics          *Metrics
	upgrader         websocket.Upgrader
	workspaceRoot    string
	handshakeTimeout time.Duration
	limits           config.LimitsConfig
}

// NewServer validates the wiring and builds a Server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		return nil, fmt.Errorf("host: ServerConfig.Config is required")
	}
	if cfg.Source == nil {
		cfg.Source = NewFileStore(cfg.Config.WorkspaceRoot)
	}
	if cfg.Auth == nil {
		authenticator, err := NewAuthenticator(cfg.Config.Auth)
		if err != nil {
			return nil, err
		}
		cfg.Auth = authenticator
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}
	return &Server{
		source:           cfg.Source,
		auth:             cfg.Auth,
		terminals:        cfg.Terminals,
		clock:            cfg.Clock,
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
		workspaceRoot:    cfg.Config.WorkspaceRoot,
		handshakeTimeout: cfg.Config.Auth.HandshakeTimeout.Std(),
		limits:           cfg.Config.Limits,
	}, nil
}

// Metrics returns the server's collectors, for exposition.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler returns the HTTP handler serving both upgrade endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleControl)
	mux.HandleFunc("/terminal", s.handleTerminal)
	return mux
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("control upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn := &connection{
		server: s,
		socket: &wsTransport{conn: socket, messageType: websocket.TextMessage},
		logger: s.logger.With("remote", r.RemoteAddr),
	}
	conn.run(r.Context())
}

// handleTerminal authenticates from the query string (the terminal
// channel carries no JSON envelopes, so there is no auth frame) and
// hands the socket to the relay.
func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	if s.terminals == nil {
		http.Error(w, "terminal sessions not available", http.StatusNotFound)
		return
	}
	query := r.URL.Query()
	if _, err := s.auth.Verify(query.Get("token")); err != nil {
		s.metrics.AuthFailures.Inc()
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	sessionID := query.Get("sessionId")
	if sessionID == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}
	terminalType := query.Get("type")
	if terminalType == "" {
		terminalType = wire.DefaultTerminalType
	}
	columns := parseDimension(query.Get("cols"), 80)
	rows := parseDimension(query.Get("rows"), 24)

	session, err := s.terminals.Attach(r.Context(), sessionID, terminalType, columns, rows)
	if err != nil {
		s.logger.Warn("terminal attach failed", "session", sessionID, "type", terminalType, "error", err)
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		session.Stream.Close()
		s.logger.Warn("terminal upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.metrics.ActiveTerminals.Inc()
	defer s.metrics.ActiveTerminals.Dec()
	logger := s.logger.With("session", sessionID, "remote", r.RemoteAddr)
	logger.Info("terminal attached")
	defer logger.Info("terminal detached")

	transport := &wsTransport{conn: socket, messageType: websocket.BinaryMessage}
	if err := RelayTerminal(transport, session, logger); err != nil {
		logger.Warn("terminal relay", "error", err)
	}
}

func parseDimension(value string, fallback uint16) uint16 {
	parsed, err := strconv.ParseUint(value, 10, 16)
	if err != nil || parsed == 0 {
		return fallback
	}
	return uint16(parsed)
}

// clampPageSize applies the configured default and ceiling.
func (s *Server) clampPageSize(requested int) int {
	if requested <= 0 {
		return s.limits.PageSize
	}
	if requested > s.limits.PageSizeMax {
		return s.limits.PageSizeMax
	}
	return requested
}

// clampTreeLimits applies the configured tree bounds; zero requests
// take the defaults, larger requests are capped.
func (s *Server) clampTreeLimits(depth, nodes int) (int, int) {
	if depth <= 0 || depth > s.limits.FileTreeDepth {
		depth = s.limits.FileTreeDepth
	}
	if nodes <= 0 || nodes > s.limits.FileTreeNodes {
		nodes = s.limits.FileTreeNodes
	}
	return depth, nodes
}

// resolveTreePath maps a client-supplied path onto the workspace root,
// defaulting to the root itself.
func (s *Server) resolveTreePath(path string) (string, error) {
	if path == "" {
		return s.workspaceRoot, nil
	}
	return resolveWithin(s.workspaceRoot, path)
}

// wsTransport adapts *websocket.Conn for the control loop and the
// terminal relay. gorilla permits one concurrent writer; the mutex
// serializes the dispatch loop against the watch poller.
type wsTransport struct {
	conn        *websocket.Conn
	messageType int
	writeMu     sync.Mutex
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteMessage(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(t.messageType, data)
}

func (t *wsTransport) SetReadDeadline(deadline time.Time) {
	t.conn.SetReadDeadline(deadline)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
