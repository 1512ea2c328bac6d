package tellevo

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Client keeps one logical connection to the ventas feed alive and fans
// validated events out to subscribers. All operations return immediately;
// dialing, reading and reconnecting happen in the background.
type Client struct {
	cfg        Config
	logger     *swappableLogger
	dialer     Dialer
	clock      Clock
	metrics    *Metrics
	dispatcher *dispatcher

	mu             sync.Mutex
	url            string
	forcedProtocol string
	state          ConnectionState
	policy         ReconnectPolicy
	// gen identifies the current transport. Callbacks from dials, reads and
	// timers carry the gen they were started under and are dropped once it
	// moves on.
	gen            uint64
	sessionID      string
	dialing        bool
	transport      Transport
	runCtx         context.Context
	cancel         context.CancelFunc
	connectTimer   Timer
	heartbeatTimer Timer
	retryTimer     Timer
}

// NewClient constructs a client with provided config.
// Use DefaultConfig() as a starting point and set URL.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	metrics, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, WrapError(ErrorInvalidConfig, "register metrics", err)
	}

	logger := newSwappableLogger(noopLogger{})
	c := &Client{
		cfg:        cfg,
		logger:     logger,
		dialer:     cfg.Dialer,
		clock:      cfg.Clock,
		metrics:    metrics,
		dispatcher: newDispatcher(logger),
		url:        cfg.URL,
		state:      StateIdle,
		policy: ReconnectPolicy{
			BaseDelay:   cfg.ReconnectBaseDelay,
			MaxAttempts: cfg.MaxReconnectAttempts,
		},
	}
	if c.dialer == nil {
		c.dialer = websocketDialer{writeTimeout: cfg.WriteTimeout}
	}
	if c.clock == nil {
		c.clock = wallClock{}
	}
	metrics.recordState(StateIdle)
	return c, nil
}

// SetLogger overrides logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger.set(l)
}

// OnData registers a callback for validated events. The returned func
// removes it.
func (c *Client) OnData(fn func(StreamEvent)) func() { return c.dispatcher.subscribeData(fn) }

// OnStatus registers a callback for state changes.
func (c *Client) OnStatus(fn func(StatusEvent)) func() { return c.dispatcher.subscribeStatus(fn) }

// OnError registers a callback for transport errors.
func (c *Client) OnError(fn func(error)) func() { return c.dispatcher.subscribeError(fn) }

// Connect starts a connection unless one is already connecting or connected.
func (c *Client) Connect() {
	c.mu.Lock()
	c.connectLocked()
	c.mu.Unlock()
	c.dispatcher.drain()
}

// Disconnect tears the connection down with a normal closure and cancels
// every pending timer. It never triggers a reconnect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	release := c.detachLocked(CloseNormal, "Client disconnect")
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()
	release()
	c.dispatcher.drain()
}

// Reconnect resets the attempt counter, disconnects and connects again after
// Config.ManualReconnectDelay, skipping the backoff schedule.
func (c *Client) Reconnect() {
	c.mu.Lock()
	c.logger.Info("manual reconnection requested", map[string]any{"url": c.url})
	c.policy.Reset()
	release := c.detachLocked(CloseNormal, "Client disconnect")
	c.setStateLocked(StateDisconnected)
	gen := c.gen
	c.retryTimer = c.clock.AfterFunc(c.cfg.ManualReconnectDelay, func() { c.handleManualReconnect(gen) })
	c.mu.Unlock()
	release()
	c.dispatcher.drain()
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetForcedProtocol rewrites the endpoint scheme to "ws" or "wss". It takes
// effect on the next dial.
func (c *Client) SetForcedProtocol(protocol string) error {
	if protocol != "ws" && protocol != "wss" {
		return NewError(ErrorInvalidConfig, "protocol must be ws or wss, got "+protocol)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	u, err := url.Parse(c.url)
	if err != nil {
		return WrapError(ErrorInvalidConfig, "malformed URL", err)
	}
	u.Scheme = protocol
	c.url = u.String()
	c.forcedProtocol = protocol
	c.logger.Info("forcing protocol override", map[string]any{"protocol": protocol, "url": c.url})
	return nil
}

// ConnectionInfo is a diagnostics snapshot. It is not part of the event
// contract.
type ConnectionInfo struct {
	URL               string          `json:"url"`
	State             ConnectionState `json:"state"`
	Connected         bool            `json:"connected"`
	Connecting        bool            `json:"connecting"`
	ReconnectAttempts int             `json:"reconnect_attempts"`
	ReadyState        int             `json:"ready_state"`
	Protocol          string          `json:"protocol"`
	ForcedProtocol    string          `json:"forced_protocol,omitempty"`
	SessionID         string          `json:"session_id,omitempty"`
}

// ConnectionInfo returns the current diagnostics snapshot.
func (c *Client) ConnectionInfo() ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	info := ConnectionInfo{
		URL:               c.url,
		State:             c.state,
		Connected:         c.state == StateConnected,
		Connecting:        c.state == StateConnecting,
		ReconnectAttempts: c.policy.Attempt,
		ReadyState:        ReadyStateNone,
		Protocol:          "ws",
		ForcedProtocol:    c.forcedProtocol,
		SessionID:         c.sessionID,
	}
	switch {
	case c.transport != nil:
		info.ReadyState = ReadyStateOpen
	case c.dialing:
		info.ReadyState = ReadyStateConnecting
	}
	if u, err := url.Parse(c.url); err == nil && u.Scheme == "wss" {
		info.Protocol = "wss"
	}
	return info
}

func (c *Client) connectLocked() {
	if c.state == StateConnecting || c.state == StateConnected {
		c.logger.Debug("already connected or connecting, skipping", map[string]any{"state": c.state.String()})
		return
	}
	c.setStateLocked(StateConnecting)
	c.dialLocked()
}

// dialLocked replaces whatever transport exists with a fresh dial.
func (c *Client) dialLocked() {
	c.detachLocked(websocket.StatusGoingAway, "superseded")()

	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.runCtx = ctx
	c.cancel = cancel
	c.dialing = true
	c.sessionID = uuid.NewString()
	c.connectTimer = c.clock.AfterFunc(c.cfg.ConnectTimeout, func() { c.handleConnectTimeout(gen) })

	c.logger.Info("dialing", map[string]any{"url": c.url, "session": c.sessionID, "attempt": c.policy.Attempt})
	go c.run(ctx, gen, c.url)
}

func (c *Client) run(ctx context.Context, gen uint64, target string) {
	t, err := c.dialer.Dial(ctx, target)
	if err != nil {
		c.handleTransportError(gen, WrapError(ErrorConnection, "dial failed", err))
		return
	}
	if !c.handleOpen(gen, t) {
		return
	}
	for {
		data, err := t.Read(ctx)
		if err != nil {
			c.handleReadError(gen, err)
			return
		}
		c.handleFrame(gen, data)
	}
}

func (c *Client) handleOpen(gen uint64, t Transport) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		go func() { _ = t.Close(websocket.StatusGoingAway, "superseded") }()
		return false
	}
	stopTimer(&c.connectTimer)
	c.dialing = false
	c.transport = t
	c.policy.Reset()
	c.logger.Info("connected", map[string]any{"url": c.url, "session": c.sessionID})
	c.setStateLocked(StateConnected)
	c.armHeartbeatLocked(gen)
	c.mu.Unlock()
	c.dispatcher.drain()
	return true
}

func (c *Client) handleFrame(gen uint64, data []byte) {
	ev, err := DecodeEvent(data)

	c.mu.Lock()
	if gen != c.gen || c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	if err != nil {
		result := "invalid"
		if errors.Is(err, &StreamError{Code: ErrorSerialization}) {
			result = "malformed"
		}
		c.metrics.recordFrame(result)
		c.logger.Warn("dropping frame", map[string]any{"session": c.sessionID, "error": err.Error(), "frame": string(data)})
		c.mu.Unlock()
		return
	}
	c.metrics.recordFrame("delivered")
	c.dispatcher.enqueue(notification{kind: notifyData, event: ev})
	c.mu.Unlock()
	c.dispatcher.drain()
}

func (c *Client) handleReadError(gen uint64, err error) {
	code := websocket.CloseStatus(err)
	if code == -1 {
		c.handleTransportError(gen, WrapError(ErrorConnection, "connection lost", err))
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	var ce websocket.CloseError
	reason := ""
	if errors.As(err, &ce) {
		reason = ce.Reason
	}
	c.logger.Info("connection closed", map[string]any{"session": c.sessionID, "code": int(code), "reason": reason})
	release := c.detachLocked(CloseNormal, "")
	if code == CloseNormal {
		c.setStateLocked(StateDisconnected)
	} else {
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()
	release()
	c.dispatcher.drain()
}

func (c *Client) handleConnectTimeout(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || !c.dialing {
		c.mu.Unlock()
		return
	}
	c.logger.Error("connection timeout", map[string]any{"url": c.url, "timeout": c.cfg.ConnectTimeout.String()})
	release := c.failLocked(ErrConnectTimeout)
	c.mu.Unlock()
	release()
	c.dispatcher.drain()
}

func (c *Client) handleTransportError(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	release := c.failLocked(err)
	c.mu.Unlock()
	release()
	c.dispatcher.drain()
}

// failLocked reports err to error subscribers, drops the transport and
// either schedules a reconnect or gives up.
func (c *Client) failLocked(err error) func() {
	c.logger.Error("connection error", map[string]any{"url": c.url, "session": c.sessionID, "error": err.Error()})
	c.metrics.recordError(err)
	c.dispatcher.enqueue(notification{kind: notifyError, err: err})
	release := c.detachLocked(websocket.StatusGoingAway, "connection error")
	c.scheduleReconnectLocked()
	return release
}

func (c *Client) scheduleReconnectLocked() {
	if c.policy.Exhausted() {
		c.logger.Error("max reconnect attempts reached", map[string]any{"attempts": c.policy.Attempt})
		c.setStateLocked(StateDisconnected)
		return
	}
	delay := c.policy.Next()
	c.metrics.recordReconnect()
	c.logger.Info("scheduling reconnect", map[string]any{
		"attempt": c.policy.Attempt,
		"max":     c.policy.MaxAttempts,
		"delay":   delay.String(),
	})
	c.setStateLocked(StateConnecting)
	gen := c.gen
	c.retryTimer = c.clock.AfterFunc(delay, func() { c.handleRetry(gen) })
}

func (c *Client) handleRetry(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state == StateConnected {
		c.mu.Unlock()
		return
	}
	c.retryTimer = nil
	c.dialLocked()
	c.mu.Unlock()
	c.dispatcher.drain()
}

func (c *Client) handleManualReconnect(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.retryTimer = nil
	c.connectLocked()
	c.mu.Unlock()
	c.dispatcher.drain()
}

func (c *Client) armHeartbeatLocked(gen uint64) {
	c.heartbeatTimer = c.clock.AfterFunc(c.cfg.HeartbeatInterval, func() { c.heartbeat(gen) })
}

func (c *Client) heartbeat(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateConnected || c.transport == nil {
		c.mu.Unlock()
		return
	}
	t, ctx := c.transport, c.runCtx
	frame := newPingFrame(c.clock.Now())
	c.armHeartbeatLocked(gen)
	c.mu.Unlock()

	if err := t.Write(ctx, frame); err != nil {
		c.handleTransportError(gen, WrapError(ErrorHeartbeat, "heartbeat failed", err))
		return
	}
	c.metrics.recordHeartbeat()
}

// detachLocked invalidates the current generation, stops every timer and
// hands back a func that closes the old transport outside the lock.
func (c *Client) detachLocked(code websocket.StatusCode, reason string) func() {
	c.gen++
	stopTimer(&c.connectTimer)
	stopTimer(&c.heartbeatTimer)
	stopTimer(&c.retryTimer)

	t, cancel := c.transport, c.cancel
	c.transport = nil
	c.cancel = nil
	c.runCtx = nil
	c.dialing = false

	return func() {
		if t == nil && cancel == nil {
			return
		}
		go func() {
			if t != nil {
				_ = t.Close(code, reason)
			}
			if cancel != nil {
				cancel()
			}
		}()
	}
}

func (c *Client) setStateLocked(s ConnectionState) {
	if s == c.state {
		return
	}
	old := c.state
	c.state = s
	c.metrics.recordState(s)
	c.logger.Debug("connection status", map[string]any{"from": old.String(), "to": s.String()})
	c.dispatcher.enqueue(notification{
		kind:   notifyStatus,
		status: StatusEvent{OldState: old, NewState: s, Attempt: c.policy.Attempt},
	})
}

func stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
