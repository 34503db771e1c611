// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package connect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tetherhq/tether/events"
	"github.com/tetherhq/tether/lib/clock"
	"github.com/tetherhq/tether/lib/netutil"
	"github.com/tetherhq/tether/wire"
)

// State is the connection lifecycle position. Connected is reached
// only after the auth handshake succeeds, never on socket open alone.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Quality estimates link health from consecutive missed heartbeat
// replies. Any reply resets it to good.
type Quality string

const (
	QualityGood     Quality = "good"
	QualityDegraded Quality = "degraded"
	QualityPoor     Quality = "poor"
)

// Event channel topics published by the Manager.
const (
	// TopicConnectionState carries a State on every transition.
	TopicConnectionState = "connection_state"

	// TopicConnectionQuality carries a Quality when the estimate moves.
	TopicConnectionQuality = "connection_quality"

	// TopicSessionUpdate carries a wire.SessionUpdate per live push.
	TopicSessionUpdate = "session_update"

	// TopicHostError carries a *wire.ServerError for application
	// errors the host pushes outside any request.
	TopicHostError = "host_error"
)

const (
	// DefaultHeartbeatInterval is how often a ping is sent while
	// connected.
	DefaultHeartbeatInterval = 15 * time.Second

	// DefaultRequestTimeout bounds how long a correlated request waits
	// for its response.
	DefaultRequestTimeout = 30 * time.Second

	// maxMissedHeartbeats force-closes the socket: three intervals
	// with no reply means the link is dead even if TCP has not
	// noticed.
	maxMissedHeartbeats = 3

	// reconnectBaseDelay and reconnectMaxDelay bound the exponential
	// backoff: min(base·2^attempt, max).
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 60 * time.Second

	// triggerCooldown spaces lifecycle-triggered reconnects
	// (app foreground, network restored) to avoid reconnect storms.
	triggerCooldown = 5 * time.Second
)

// ManagerConfig configures a Manager. Zero-value fields get production
// defaults.
type ManagerConfig struct {
	// Dialer opens sockets. Default: WebSocketDialer().
	Dialer Dialer

	// Clock drives every timer. Default: clock.Real().
	Clock clock.Clock

	// Events receives state, quality, and push notifications.
	// Default: a fresh channel, available via Events().
	Events *events.Channel

	// Logger for connection lifecycle and protocol noise.
	// Default: slog.Default().
	Logger *slog.Logger

	// HeartbeatInterval overrides DefaultHeartbeatInterval.
	HeartbeatInterval time.Duration

	// RequestTimeout overrides DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// Manager owns the control channel: the socket, the auth handshake,
// the heartbeat, and the reconnection policy. All state mutation
// happens under one mutex with the Manager as the single writer;
// observers consume the event channel.
type Manager struct {
	dialer            Dialer
	clock             clock.Clock
	events            *events.Channel
	logger            *slog.Logger
	heartbeatInterval time.Duration
	requestTimeout    time.Duration

	mu      sync.Mutex
	state   State
	quality Quality

	// params survive transient loss for silent resume; destroyed only
	// by explicit Disconnect.
	params *Params

	socket Socket

	// generation increments per socket so callbacks from a replaced
	// socket's read loop or heartbeat cannot touch current state.
	generation uint64

	// hasConnectedThisSession gates reconnection: a connection that
	// never authenticated (wrong token, wrong host) is not worth
	// retrying automatically.
	hasConnectedThisSession bool

	// manualDisconnect suppresses the reconnect that would otherwise
	// follow the close we are about to cause.
	manualDisconnect bool

	// attempt counts consecutive failed reconnects for backoff.
	attempt        int
	reconnectTimer *clock.Timer

	heartbeatTicker *clock.Ticker
	heartbeatStop   chan struct{}
	missedPongs     int

	// lastTrigger is the shared cooldown anchor for lifecycle
	// reconnect triggers.
	lastTrigger time.Time

	waiters      map[uint64]chan error
	nextWaiterID uint64

	pending       map[string]chan requestResult
	nextRequestID uint64

	pushHandlers map[string]func(wire.Message)
}

// NewManager creates a Manager in the disconnected state. The one
// process-wide instance belongs at the application composition root.
func NewManager(config ManagerConfig) *Manager {
	if config.Dialer == nil {
		config.Dialer = WebSocketDialer()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Events == nil {
		config.Events = events.New()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	return &Manager{
		dialer:            config.Dialer,
		clock:             config.Clock,
		events:            config.Events,
		logger:            config.Logger,
		heartbeatInterval: config.HeartbeatInterval,
		requestTimeout:    config.RequestTimeout,
		state:             StateDisconnected,
		quality:           QualityGood,
		waiters:           make(map[uint64]chan error),
		pending:           make(map[string]chan requestResult),
		pushHandlers:      make(map[string]func(wire.Message)),
	}
}

// Events returns the event channel observers subscribe on.
func (m *Manager) Events() *events.Channel { return m.events }

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Quality returns the current link quality estimate.
func (m *Manager) Quality() Quality {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quality
}

// Connect stores the connection parameters and dials. The state moves
// to connecting immediately and to connected only when the host
// acknowledges the token. Returns an error when a connection is
// already underway.
func (m *Manager) Connect(ctx context.Context, params Params) error {
	m.mu.Lock()
	if m.state != StateDisconnected {
		state := m.state
		m.mu.Unlock()
		return errAlreadyActive(state)
	}
	stored := params
	m.params = &stored
	m.manualDisconnect = false
	m.attempt = 0
	m.mu.Unlock()

	m.dial(ctx)
	return nil
}

// Disconnect tears everything down at the user's request: timers
// stopped, pending requests failed, event subscribers dropped,
// parameters destroyed. The next close event will not trigger a
// reconnect, and Reconnect becomes ineligible until a fresh Connect
// authenticates.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.manualDisconnect = true
	m.hasConnectedThisSession = false
	m.params = nil
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	m.stopHeartbeatLocked()
	socket := m.socket
	failing := m.takePendingLocked()
	waiting := m.takeWaitersLocked()
	changed := false
	if socket == nil {
		// No read loop will observe a close; finish the transition
		// here and consume the manual flag.
		m.manualDisconnect = false
		changed = m.setStateLocked(StateDisconnected)
	}
	m.mu.Unlock()

	for _, result := range failing {
		result <- requestResult{err: ErrConnectionClosed}
	}
	for _, waiter := range waiting {
		waiter <- ErrConnectionClosed
	}
	if socket != nil {
		socket.Close()
	}
	if changed {
		m.publishState(StateDisconnected)
	}
	m.events.DropAll()
}

// Reconnect re-dials with the stored parameters, resetting the backoff
// counter. Returns false — without side effects — unless parameters
// exist and this process has authenticated at least once: retrying a
// connection that was never valid would hammer a host that is
// rejecting us.
func (m *Manager) Reconnect() bool {
	m.mu.Lock()
	if m.params == nil || !m.hasConnectedThisSession || m.state != StateDisconnected {
		m.mu.Unlock()
		return false
	}
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	m.attempt = 0
	m.mu.Unlock()

	m.dial(context.Background())
	return true
}

// HandleAppForeground is the app-foreground lifecycle trigger.
func (m *Manager) HandleAppForeground() bool {
	return m.triggeredReconnect("app_foreground")
}

// HandleNetworkRestored is the network-restored lifecycle trigger.
func (m *Manager) HandleNetworkRestored() bool {
	return m.triggeredReconnect("network_restored")
}

// triggeredReconnect is Reconnect gated by a shared cooldown so a
// burst of lifecycle events (foreground + network flaps) cannot cause
// a reconnect storm.
func (m *Manager) triggeredReconnect(reason string) bool {
	m.mu.Lock()
	if m.params == nil || !m.hasConnectedThisSession || m.state != StateDisconnected {
		m.mu.Unlock()
		return false
	}
	now := m.clock.Now()
	if !m.lastTrigger.IsZero() && now.Sub(m.lastTrigger) < triggerCooldown {
		m.mu.Unlock()
		return false
	}
	m.lastTrigger = now
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	m.attempt = 0
	m.mu.Unlock()

	m.logger.Info("lifecycle reconnect", "reason", reason)
	m.dial(context.Background())
	return true
}

// WaitForConnection blocks until authentication completes, the caller's
// window elapses, or the connection is torn down. The waiter is
// deregistered on timeout so it cannot resolve late.
func (m *Manager) WaitForConnection(timeout time.Duration) error {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	m.nextWaiterID++
	id := m.nextWaiterID
	waiter := make(chan error, 1)
	m.waiters[id] = waiter
	m.mu.Unlock()

	timer := m.clock.AfterFunc(timeout, func() {
		m.mu.Lock()
		pending, ok := m.waiters[id]
		delete(m.waiters, id)
		m.mu.Unlock()
		if ok {
			pending <- ErrConnectTimeout
		}
	})
	defer timer.Stop()

	return <-waiter
}

// dial opens a socket with the stored parameters and sends the auth
// request. Safe to call from timers and triggers: it backs off when a
// connection attempt is already underway or parameters are gone.
func (m *Manager) dial(ctx context.Context) {
	m.mu.Lock()
	if m.params == nil || m.state != StateDisconnected {
		m.mu.Unlock()
		return
	}
	params := *m.params
	changed := m.setStateLocked(StateConnecting)
	m.mu.Unlock()
	if changed {
		m.publishState(StateConnecting)
	}

	socket, err := m.dialer.Dial(ctx, params.ControlURL())
	if err != nil {
		m.logger.Warn("dial failed", "error", err)
		m.dialFailed()
		return
	}

	m.mu.Lock()
	if m.params == nil {
		// Disconnected while the dial was in flight.
		m.mu.Unlock()
		socket.Close()
		return
	}
	m.socket = socket
	m.generation++
	generation := m.generation
	m.mu.Unlock()

	go m.readLoop(socket, generation)

	frame, err := wire.Encode(wire.TypeAuth, "", wire.AuthRequest{Token: params.Token})
	if err != nil {
		m.logger.Error("encode auth request", "error", err)
		socket.Close()
		return
	}
	if err := socket.WriteMessage(frame); err != nil {
		m.logger.Warn("send auth request", "error", err)
		socket.Close()
	}
}

// dialFailed returns to disconnected after a dial that never produced
// a socket, scheduling the next attempt when eligible.
func (m *Manager) dialFailed() {
	m.mu.Lock()
	wasManual := m.manualDisconnect
	m.manualDisconnect = false
	changed := m.setStateLocked(StateDisconnected)
	if !wasManual && m.params != nil && m.hasConnectedThisSession {
		m.scheduleReconnectLocked()
	}
	m.mu.Unlock()

	if changed {
		m.publishState(StateDisconnected)
	}
}

// readLoop pumps one socket until it dies. Dispatch happens on this
// goroutine, which serializes all inbound mutation.
func (m *Manager) readLoop(socket Socket, generation uint64) {
	for {
		data, err := socket.ReadMessage()
		if err != nil {
			m.socketClosed(generation, err)
			return
		}
		m.handleFrame(generation, data)
	}
}

// socketClosed handles the death of a socket: transition to
// disconnected, fail anything pending, and — unless the user caused
// the close — invoke the reconnection policy.
func (m *Manager) socketClosed(generation uint64, cause error) {
	m.mu.Lock()
	if generation != m.generation {
		m.mu.Unlock()
		return
	}
	m.socket = nil
	m.stopHeartbeatLocked()
	failing := m.takePendingLocked()
	wasManual := m.manualDisconnect
	m.manualDisconnect = false
	changed := m.setStateLocked(StateDisconnected)
	if !wasManual && m.params != nil && m.hasConnectedThisSession {
		m.scheduleReconnectLocked()
	}
	m.mu.Unlock()

	if netutil.IsExpectedCloseError(cause) {
		m.logger.Debug("socket closed", "manual", wasManual)
	} else {
		m.logger.Warn("socket closed", "error", cause, "manual", wasManual)
	}

	for _, result := range failing {
		result <- requestResult{err: ErrConnectionClosed}
	}
	if changed {
		m.publishState(StateDisconnected)
	}
}

// scheduleReconnectLocked arms the backoff timer for the next attempt.
func (m *Manager) scheduleReconnectLocked() {
	delay := ReconnectDelay(m.attempt)
	m.attempt++
	m.logger.Info("scheduling reconnect", "attempt", m.attempt, "delay", delay)
	m.reconnectTimer = m.clock.AfterFunc(delay, func() {
		m.dial(context.Background())
	})
}

// ReconnectDelay returns the backoff delay before reconnect attempt n:
// min(1s·2^n, 60s).
func ReconnectDelay(attempt int) time.Duration {
	if attempt > 6 {
		return reconnectMaxDelay
	}
	delay := reconnectBaseDelay << uint(attempt)
	if delay > reconnectMaxDelay {
		return reconnectMaxDelay
	}
	return delay
}

// handleAuthSuccess completes the handshake: connected state, reset
// backoff and heartbeat counters, resolve waiters, start the
// heartbeat.
func (m *Manager) handleAuthSuccess(generation uint64, message wire.Message) {
	m.mu.Lock()
	if generation != m.generation || m.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	clientID := ""
	if message.AuthSuccess != nil {
		clientID = message.AuthSuccess.ClientID
	}
	m.hasConnectedThisSession = true
	m.attempt = 0
	m.missedPongs = 0
	stateChanged := m.setStateLocked(StateConnected)
	qualityChanged := m.setQualityLocked(QualityGood)
	m.startHeartbeatLocked(generation)
	waiting := m.takeWaitersLocked()
	m.mu.Unlock()

	m.logger.Info("authenticated", "client_id", clientID)
	for _, waiter := range waiting {
		waiter <- nil
	}
	if stateChanged {
		m.publishState(StateConnected)
	}
	if qualityChanged {
		m.publishQuality(QualityGood)
	}
}

// startHeartbeatLocked begins the ping cycle for the current socket.
func (m *Manager) startHeartbeatLocked(generation uint64) {
	ticker := m.clock.NewTicker(m.heartbeatInterval)
	stop := make(chan struct{})
	m.heartbeatTicker = ticker
	m.heartbeatStop = stop
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.heartbeatTick(generation)
			}
		}
	}()
}

// stopHeartbeatLocked releases the ticker and its goroutine.
func (m *Manager) stopHeartbeatLocked() {
	if m.heartbeatTicker != nil {
		m.heartbeatTicker.Stop()
		m.heartbeatTicker = nil
	}
	if m.heartbeatStop != nil {
		close(m.heartbeatStop)
		m.heartbeatStop = nil
	}
	m.missedPongs = 0
}

// heartbeatTick runs once per interval while connected: count the
// reply we have not seen, degrade quality accordingly, and either
// force-close a dead link or send the next ping.
func (m *Manager) heartbeatTick(generation uint64) {
	m.mu.Lock()
	if generation != m.generation || m.state != StateConnected || m.socket == nil {
		m.mu.Unlock()
		return
	}
	m.missedPongs++
	missed := m.missedPongs
	socket := m.socket
	var newQuality Quality
	qualityChanged := false
	switch {
	case missed >= maxMissedHeartbeats:
	case missed == 2:
		newQuality = QualityPoor
		qualityChanged = m.setQualityLocked(QualityPoor)
	case missed == 1:
		newQuality = QualityDegraded
		qualityChanged = m.setQualityLocked(QualityDegraded)
	}
	timestamp := m.clock.Now().UnixMilli()
	m.mu.Unlock()

	if qualityChanged {
		m.publishQuality(newQuality)
	}
	if missed >= maxMissedHeartbeats {
		// Liveness failure: treat like any transport failure. The read
		// loop observes the close and runs the reconnection policy.
		m.logger.Warn("heartbeat: no reply, closing socket", "missed", missed)
		socket.Close()
		return
	}

	frame, err := wire.Encode(wire.TypePing, "", wire.Ping{Timestamp: timestamp})
	if err != nil {
		m.logger.Error("encode ping", "error", err)
		return
	}
	if err := socket.WriteMessage(frame); err != nil {
		// The socket may have died between tick and send; the read
		// loop handles the transition.
		m.logger.Debug("send ping", "error", err)
	}
}

// handlePong resets the missed counter and restores quality.
func (m *Manager) handlePong(generation uint64) {
	m.mu.Lock()
	if generation != m.generation {
		m.mu.Unlock()
		return
	}
	m.missedPongs = 0
	changed := m.setQualityLocked(QualityGood)
	m.mu.Unlock()

	if changed {
		m.publishQuality(QualityGood)
	}
}

// setStateLocked records a transition; returns whether it changed.
func (m *Manager) setStateLocked(state State) bool {
	if m.state == state {
		return false
	}
	m.state = state
	return true
}

func (m *Manager) setQualityLocked(quality Quality) bool {
	if m.quality == quality {
		return false
	}
	m.quality = quality
	return true
}

func (m *Manager) publishState(state State) {
	m.events.Publish(TopicConnectionState, state)
}

func (m *Manager) publishQuality(quality Quality) {
	m.events.Publish(TopicConnectionQuality, quality)
}

// takeWaitersLocked empties the waiter registry and returns the
// channels to resolve outside the lock.
func (m *Manager) takeWaitersLocked() []chan error {
	waiting := make([]chan error, 0, len(m.waiters))
	for _, waiter := range m.waiters {
		waiting = append(waiting, waiter)
	}
	m.waiters = make(map[uint64]chan error)
	return waiting
}
