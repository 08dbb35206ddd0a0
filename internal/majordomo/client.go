package majordomo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Default timings for the controller link.
const (
	// defaultRefreshInterval is how often a state request is re-sent
	// while the link is open.
	defaultRefreshInterval = 5 * time.Second

	// defaultReconnectDelay is the fixed delay between reconnection
	// attempts. The delay does not grow: the controller is a local peer
	// and a constant short retry restores the cache soonest.
	defaultReconnectDelay = 2 * time.Second

	// defaultHandshakeTimeout bounds the websocket handshake.
	defaultHandshakeTimeout = 10 * time.Second
)

// ConnState is the lifecycle state of the controller link.
// Transitions are owned exclusively by the Client's supervision loop.
type ConnState int32

const (
	// StateDisconnected means no link is up and no attempt is in flight.
	StateDisconnected ConnState = iota

	// StateConnecting means a dial/handshake is in progress.
	StateConnecting

	// StateOpen means the link is established and usable.
	StateOpen

	// StateClosing means Close was called and the loop is winding down.
	StateClosing
)

// String returns the state name for logging.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "disconnected"
	}
}

// Logger is the minimal logging interface the client needs.
// internal/infrastructure/logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the controller link settings.
type Config struct {
	// URL is the controller websocket address (ws:// or wss://).
	URL string

	// ClientID identifies this bridge in the majordomo field of requests.
	ClientID string

	// RefreshInterval overrides the periodic state-request interval.
	RefreshInterval time.Duration

	// ReconnectDelay overrides the fixed delay between reconnects.
	ReconnectDelay time.Duration

	// HandshakeTimeout overrides the websocket handshake timeout.
	HandshakeTimeout time.Duration
}

// Stats holds operational counters for the controller link.
type Stats struct {
	State             string `json:"state"`
	SnapshotsReceived uint64 `json:"snapshots_received"`
	FramesDiscarded   uint64 `json:"frames_discarded"`
	CommandsSent      uint64 `json:"commands_sent"`
	Reconnects        uint64 `json:"reconnects"`
	Ready             bool   `json:"ready"`
}

// Client owns the websocket link to the home-automation controller.
//
// It establishes the connection, requests a state snapshot immediately and
// then periodically while open, ingests snapshot responses into its cache,
// and reconnects after a fixed delay whenever the link drops. Command
// sends are fire-and-forget: acknowledgments from the controller are
// ignored, and an HTTP success only ever means "message was sent".
//
// Thread Safety: all methods are safe for concurrent use. The snapshot
// reference is replaced wholesale and snapshots are never mutated after
// being stored, so readers always observe a complete, consistent view.
type Client struct {
	cfg    Config
	logger Logger

	// Link state. conn is non-nil only while state is Open.
	mu    sync.Mutex
	state ConnState
	conn  *websocket.Conn

	// writeMu serialises writes; gorilla allows one concurrent writer.
	writeMu sync.Mutex

	// Last fully parsed snapshot. nil until the first one ever arrives.
	snapMu   sync.RWMutex
	snapshot *Snapshot

	// Lifecycle
	started   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	// Statistics
	snapshotsReceived atomic.Uint64
	framesDiscarded   atomic.Uint64
	commandsSent      atomic.Uint64
	reconnects        atomic.Uint64
}

// New creates a controller link client. Zero durations in cfg fall back to
// the protocol defaults (5s refresh, 2s reconnect).
func New(cfg Config, logger Logger) *Client {
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "bridge"
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the connection supervision loop. The loop runs until the
// context is cancelled or Close is called; connection failures are never
// fatal and retry forever on the fixed delay.
func (c *Client) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	c.wg.Add(1)
	go c.supervise(ctx)
	return nil
}

// Close tears down the link and stops the supervision loop.
func (c *Client) Close() error {
	c.mu.Lock()
	c.state = StateClosing
	conn := c.conn
	c.mu.Unlock()

	c.closeOnce.Do(func() { close(c.done) })

	if conn != nil {
		conn.Close() //nolint:errcheck // Best effort teardown
	}

	c.wg.Wait()
	return nil
}

// State returns the current link state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the most recent snapshot and whether one has ever been
// received. Until the first snapshot arrives the cache is "not ready" -
// callers must treat that as unavailable, not as an empty house.
func (c *Client) Snapshot() (*Snapshot, bool) {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	if c.snapshot == nil {
		return nil, false
	}
	return c.snapshot, true
}

// Send transmits a message to the controller. It is permitted only while
// the link is Open and returns ErrNotConnected otherwise. Sending is
// fire-and-forget: no response correlation, no delivery confirmation, no
// retry.
func (c *Client) Send(msg any) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()

	if state != StateOpen || conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("writing to controller: %w", err)
	}
	return nil
}

// Control sends a set_state command targeting the given address code.
// Delivery follows the same fire-and-forget rules as Send. Only control
// commands count towards the commands_sent stat; periodic state requests
// do not.
func (c *Client) Control(code AddressCode, state any) error {
	if err := c.Send(NewControlMessage(c.cfg.ClientID, code, state)); err != nil {
		return err
	}
	c.commandsSent.Add(1)
	return nil
}

// Stats returns operational counters for the /health endpoint.
func (c *Client) Stats() Stats {
	_, ready := c.Snapshot()
	return Stats{
		State:             c.State().String(),
		SnapshotsReceived: c.snapshotsReceived.Load(),
		FramesDiscarded:   c.framesDiscarded.Load(),
		CommandsSent:      c.commandsSent.Load(),
		Reconnects:        c.reconnects.Load(),
		Ready:             ready,
	}
}

// supervise is the long-lived connection loop: dial, serve the open link,
// tear down, wait the fixed delay, repeat.
func (c *Client) supervise(ctx context.Context) {
	defer c.wg.Done()

	attempts := 0
	for {
		if c.stopped(ctx) {
			return
		}

		if !c.setStateUnlessClosing(StateConnecting) {
			return
		}

		conn, err := c.dial(ctx)
		if err != nil {
			c.setStateUnlessClosing(StateDisconnected)
			c.logger.Warn("controller dial failed",
				"url", c.cfg.URL,
				"error", err,
				"retry_in", c.cfg.ReconnectDelay.String(),
			)
			if !c.sleep(ctx, c.cfg.ReconnectDelay) {
				return
			}
			continue
		}

		if attempts > 0 {
			c.reconnects.Add(1)
		}
		attempts++

		if !c.attach(conn) {
			return
		}
		c.logger.Info("controller link open", "url", c.cfg.URL)

		// First sync, then the periodic refresh keeps the cache fresh.
		c.requestState()

		refreshStop := make(chan struct{})
		c.wg.Add(1)
		go c.refreshLoop(refreshStop)

		c.readLoop(conn)

		close(refreshStop)
		c.detach(conn)

		if c.stopped(ctx) {
			return
		}
		c.logger.Warn("controller link closed",
			"reconnect_in", c.cfg.ReconnectDelay.String(),
		)
		if !c.sleep(ctx, c.cfg.ReconnectDelay) {
			return
		}
	}
}

// dial opens the websocket connection to the controller.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", c.cfg.URL, err)
	}
	return conn, nil
}

// attach installs an established connection and marks the link Open.
// If Close began while the dial was in flight the connection is closed
// here instead of installed, and attach reports false so the supervision
// loop exits rather than reading from an orphaned connection.
func (c *Client) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosing {
		conn.Close() //nolint:errcheck // Best effort teardown
		return false
	}
	c.conn = conn
	c.state = StateOpen
	return true
}

// detach removes the connection after the read loop exits.
func (c *Client) detach(conn *websocket.Conn) {
	conn.Close() //nolint:errcheck // Already broken or being replaced

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
	if c.state != StateClosing {
		c.state = StateDisconnected
	}
}

// setStateUnlessClosing transitions the state unless Close has begun.
// Returns false if the client is closing.
func (c *Client) setStateUnlessClosing(s ConnState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosing {
		return false
	}
	c.state = s
	return true
}

// readLoop consumes frames until the connection fails. Transport errors
// only end the loop; the supervision loop owns the reconnect.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleFrame(data)
	}
}

// handleFrame processes one inbound frame. Unparseable frames are
// discarded silently; the cache is left untouched and nothing surfaces to
// HTTP callers.
func (c *Client) handleFrame(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.framesDiscarded.Add(1)
		c.logger.Debug("discarding unparseable frame", "error", err)
		return
	}

	switch {
	case msg.Method == MethodGetState && msg.Data != nil:
		c.snapMu.Lock()
		c.snapshot = msg.Data
		c.snapMu.Unlock()
		c.snapshotsReceived.Add(1)
		c.logger.Debug("snapshot applied",
			"rooms", len(msg.Data.Rooms),
			"scenarios", len(msg.Data.Scenarios),
		)

	case msg.Hello:
		c.logger.Info("controller greeting", "note", msg.Note)

	default:
		// Anything else, including set_state acknowledgments, is
		// ignored: sends are fire-and-forget.
		c.logger.Debug("ignoring frame", "method", msg.Method)
	}
}

// refreshLoop re-sends the state request on a fixed period while the link
// stays open.
func (c *Client) refreshLoop(stop <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.requestState()
		}
	}
}

// requestState sends a get_state request. Failures are logged only: the
// next tick or reconnect will try again.
func (c *Client) requestState() {
	if err := c.Send(NewStateRequest(c.cfg.ClientID)); err != nil {
		c.logger.Debug("state request not sent", "error", err)
	}
}

// sleep waits for d and reports whether the client should keep running.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-c.done:
		return false
	case <-timer.C:
		return true
	}
}

// stopped reports whether shutdown has been requested.
func (c *Client) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-c.done:
		return true
	default:
		return false
	}
}
