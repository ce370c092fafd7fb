// Package client implements a chat room endpoint: a connection manager that
// keeps one websocket session alive across retries and forced reconnects,
// and a dispatcher that fans every inbound packet out to a fixed handler
// chain.
//
// A Client drives exactly one room at a time. Connect, Send, Receive and
// Close may be used from any number of goroutines; Run ties them together
// into the usual connect-then-dispatch loop a bot runs in.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/SarahisCode/basebot/chatlog"
	"github.com/SarahisCode/basebot/config"
	"github.com/SarahisCode/basebot/errors"
	"github.com/SarahisCode/basebot/metric"
	"github.com/SarahisCode/basebot/pkg/retry"
	"github.com/SarahisCode/basebot/proto"
	"github.com/SarahisCode/basebot/roster"
	"github.com/SarahisCode/basebot/transport"
)

// State enumerates the connection lifecycle of a Client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Client is a single-room protocol endpoint. Its zero value is not usable;
// construct one with New.
type Client struct {
	logger  *slog.Logger
	metrics *metric.Metrics
	limiter *rate.Limiter

	// roomLabel caches the room name for metric and state reporting on
	// paths that must not take mu.
	roomLabel atomic.Value
	closed    atomic.Bool

	// Connection monitor. connMu guards conn, connecting, state and
	// dialErr; connCond is broadcast on every transition. Never acquire
	// mu or dispatchMu while holding connMu.
	connMu     sync.Mutex
	connCond   *sync.Cond
	conn       *transport.Conn
	connecting bool
	state      State
	dialErr    error

	// mu guards the mutable configuration, the correlation sequence, the
	// pending-command table, the handler registries and the per-epoch
	// session identity. It is never held across a handler, hook or
	// transport call.
	mu          sync.Mutex
	cfg         config.EndpointConfig
	cmdID       uint64
	pending     map[string]*pendingCommand
	handlers    map[proto.PacketType][]registration
	handlerSeq  uint64
	modules     []Module
	sessionID   string
	effNick     string
	established bool
	nickSet     bool

	// dispatchMu serializes whole dispatch chains so handlers for one
	// packet never interleave with handlers for another.
	dispatchMu sync.Mutex

	tracker *Tracker

	onConnected    func()
	onSessionStart func()
	onSessionEnd   func(clean, final bool)
	onClosed       func(clean, final bool)
	onNickSet      func(name string)
}

// Option configures a Client at construction.
type Option func(*Client) error

// WithLogger sets the client's logger. A nil logger restores the default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics attaches a metrics sink. Endpoints may share one; series are
// labelled by room.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Client) error {
		c.metrics = m
		return nil
	}
}

// WithConnectCallback sets a callback fired after every successful
// transport install, including forced reconnects.
func WithConnectCallback(fn func()) Option {
	return func(c *Client) error {
		c.onConnected = fn
		return nil
	}
}

// WithSessionStartCallback sets a callback fired when the room snapshot
// arrives and the session becomes established.
func WithSessionStartCallback(fn func()) Option {
	return func(c *Client) error {
		c.onSessionStart = fn
		return nil
	}
}

// WithSessionEndCallback sets a callback fired when an established session
// ends. clean reports a deliberate teardown; final reports that the client
// will not reconnect on its own.
func WithSessionEndCallback(fn func(clean, final bool)) Option {
	return func(c *Client) error {
		c.onSessionEnd = fn
		return nil
	}
}

// WithCloseCallback sets a callback fired on every connection teardown,
// with the same clean/final flags as the session-end callback.
func WithCloseCallback(fn func(clean, final bool)) Option {
	return func(c *Client) error {
		c.onClosed = fn
		return nil
	}
}

// WithNickCallback sets a callback fired the first time in each connection
// epoch that the server confirms a nick for this client.
func WithNickCallback(fn func(name string)) Option {
	return func(c *Client) error {
		c.onNickSet = fn
		return nil
	}
}

// WithModule attaches a dispatch module at construction time, after the
// built-in tracker.
func WithModule(m Module) Option {
	return func(c *Client) error {
		c.modules = append(c.modules, m)
		return nil
	}
}

// New builds a Client for the room described by cfg. The configuration is
// normalized first; construction fails on an invalid one.
func New(cfg config.EndpointConfig, opts ...Option) (*Client, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		logger:   slog.Default(),
		limiter:  rate.NewLimiter(rate.Limit(cfg.SendRate), cfg.SendBurst),
		cfg:      cfg,
		pending:  make(map[string]*pendingCommand),
		handlers: make(map[proto.PacketType][]registration),
		state:    StateDisconnected,
	}
	c.connCond = sync.NewCond(&c.connMu)
	c.roomLabel.Store(cfg.Room)
	c.tracker = newTracker(cfg.TrackUsers, cfg.TrackMessages)
	c.modules = []Module{c.tracker}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "New", "apply option")
		}
	}
	c.logger = c.logger.With("component", "client", "room", cfg.Room)
	return c, nil
}

// Room returns the room the client is configured to join.
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Room
}

// Config returns a copy of the client's current endpoint configuration.
// SetRoom, SetNick and SetPasscode are reflected, so the copy describes
// where the client actually lives rather than where it started out.
func (c *Client) Config() config.EndpointConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Nick returns the nickname the client requests on join.
func (c *Client) Nick() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Nick
}

// EffectiveNick returns the server-confirmed nickname for the current
// session, or "" before the first nick-reply of the epoch.
func (c *Client) EffectiveNick() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effNick
}

// SessionID returns the server-assigned id of the current session, or ""
// before the hello event arrives.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Established reports whether the room snapshot has arrived in the current
// connection epoch.
func (c *Client) Established() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.established
}

// State returns the current connection state.
func (c *Client) State() State {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.state
}

// Connected reports whether a transport is installed, waiting out any
// in-flight connect first.
func (c *Client) Connected() bool {
	return c.getConn() != nil
}

// Users exposes the tracked room roster. It is empty unless user tracking
// is enabled in the configuration.
func (c *Client) Users() *roster.UserList { return c.tracker.Users() }

// Messages exposes the tracked message log. It is empty unless message
// tracking is enabled in the configuration.
func (c *Client) Messages() *chatlog.Tree { return c.tracker.Messages() }

// HandleChat registers a handler for every chat message seen by the
// tracker and returns a function that removes it.
func (c *Client) HandleChat(fn ChatHandler) func() { return c.tracker.HandleChat(fn) }

// HandleLogs registers a handler for batches of past messages (log replies
// and snapshots) and returns a function that removes it.
func (c *Client) HandleLogs(fn LogHandler) func() { return c.tracker.HandleLogs(fn) }

// Connect establishes the websocket session, retrying failed dials on a
// fixed delay up to the configured retry count. When a connect is already
// in flight the caller waits for it to settle and adopts its outcome, so N
// concurrent callers produce at most one transport. Connecting to an
// already connected client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	room := c.cfg.Room
	url := c.cfg.RoomURL()
	timeout := c.cfg.Timeout
	attempts := c.cfg.RetryCount + 1
	delay := c.cfg.RetryDelay
	c.mu.Unlock()

	if room == "" {
		return errors.WrapInvalid(errors.ErrNoRoom, "Client", "Connect", "resolve room address")
	}
	c.closed.Store(false)

	c.connMu.Lock()
	waited := false
	for c.connecting {
		waited = true
		c.connCond.Wait()
	}
	if c.conn != nil {
		c.connMu.Unlock()
		return nil
	}
	if waited {
		// Adopt the outcome of the attempt we joined instead of dialing
		// a second time.
		err := c.dialErr
		c.connMu.Unlock()
		return err
	}
	c.connecting = true
	c.setStateLocked(StateConnecting)
	c.connMu.Unlock()

	c.logger.Info("Connecting", "url", url)
	attempt := 0
	conn, err := retry.DoWithResult(ctx, retry.Fixed(attempts, delay), func() (*transport.Conn, error) {
		attempt++
		conn, derr := transport.Dial(ctx, url, timeout)
		if derr != nil {
			c.recordConnect("failure")
			c.logger.Warn("Connection attempt failed", "attempt", attempt, "error", derr)
			return nil, derr
		}
		c.recordConnect("success")
		return conn, nil
	})

	c.install(conn, err)
	if err != nil {
		return err
	}
	return nil
}

// install publishes the outcome of a dial under the monitor and, on
// success, starts a fresh correlation epoch and fires the connect
// callback.
func (c *Client) install(conn *transport.Conn, err error) {
	c.connMu.Lock()
	c.connecting = false
	c.conn = conn
	c.dialErr = err
	if conn != nil {
		c.setStateLocked(StateConnected)
	} else {
		c.setStateLocked(StateDisconnected)
	}
	c.connCond.Broadcast()
	c.connMu.Unlock()

	if conn == nil {
		return
	}
	c.beginEpoch()
	if c.onConnected != nil {
		c.onConnected()
	}
}

// Close tears down the connection and reports a clean, final close to the
// registered callbacks. It is the only way to interrupt a blocked receive.
// Repeated calls are safe.
func (c *Client) Close() error {
	return c.disconnect(true, true)
}

// Reconnect drops the current connection, if any, and establishes a new
// one as a single operation.
func (c *Client) Reconnect(ctx context.Context) error {
	return c.reconnect(ctx, "requested")
}

func (c *Client) reconnect(ctx context.Context, cause string) error {
	c.recordReconnect(cause)
	if err := c.disconnect(true, false); err != nil {
		c.logger.Warn("Close before reconnect failed", "error", err)
	}
	return c.Connect(ctx)
}

// disconnect waits out any in-flight connect, detaches the transport, and
// reports the teardown: the session-end callback first (when a session was
// established this epoch), module close passes, then the close callback.
// The transport itself is closed last, outside all locks.
func (c *Client) disconnect(clean, final bool) error {
	if clean {
		c.logger.Info("Closing connection")
	} else {
		c.logger.Warn("Closing connection abnormally")
	}
	if final {
		c.closed.Store(true)
	}

	c.connMu.Lock()
	for c.connecting {
		c.connCond.Wait()
	}
	conn := c.conn
	c.conn = nil
	c.setStateLocked(StateDisconnected)
	c.connCond.Broadcast()
	c.connMu.Unlock()

	c.finishSession(clean, final)

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// finishSession resets the per-epoch identity and notifies the teardown
// callbacks. The session-end callback observes the identity of the epoch
// that just ended; everything after it sees a blank slate.
func (c *Client) finishSession(clean, final bool) {
	c.mu.Lock()
	established := c.established
	c.established = false
	c.mu.Unlock()

	if established && c.onSessionEnd != nil {
		c.onSessionEnd(clean, final)
	}

	c.mu.Lock()
	c.sessionID = ""
	c.effNick = ""
	c.nickSet = false
	c.pending = make(map[string]*pendingCommand)
	c.mu.Unlock()

	for _, m := range c.snapshotModules() {
		m.HandleClose(c, clean, final)
	}
	if c.onClosed != nil {
		c.onClosed(clean, final)
	}
}

// reconnectBroken is the forced-reconnect path used by the send/receive
// retry wrappers when the transport fails mid-operation. It discards the
// broken transport, reports a non-final abnormal close, and makes exactly
// one fresh dial; the caller's retry budget pays for failures here, not an
// inner one.
func (c *Client) reconnectBroken(ctx context.Context) error {
	if c.closed.Load() {
		return retry.NonRetryable(errors.Wrap(errors.ErrShuttingDown, "Client", "reconnect", "endpoint closed"))
	}

	var stale *transport.Conn
	c.connMu.Lock()
	if !c.connecting {
		stale = c.conn
		c.conn = nil
	}
	for c.connecting {
		c.connCond.Wait()
	}
	if c.conn != nil {
		// Another caller already installed a fresh transport.
		c.connMu.Unlock()
		c.closeStale(stale)
		return nil
	}
	c.connMu.Unlock()

	c.closeStale(stale)
	c.recordReconnect("forced")
	c.finishSession(false, false)

	// The monitor was released while callbacks ran; someone else may have
	// started or finished a connect in the meantime.
	c.connMu.Lock()
	for c.connecting {
		c.connCond.Wait()
	}
	if c.conn != nil {
		c.connMu.Unlock()
		return nil
	}
	c.connecting = true
	c.setStateLocked(StateReconnecting)
	c.connMu.Unlock()

	c.mu.Lock()
	url := c.cfg.RoomURL()
	timeout := c.cfg.Timeout
	c.mu.Unlock()

	c.logger.Info("Reconnecting", "url", url)
	conn, err := transport.Dial(ctx, url, timeout)
	if err != nil {
		c.recordConnect("failure")
	} else {
		c.recordConnect("success")
	}
	c.install(conn, err)
	return err
}

// getConn waits out any in-flight connect and returns the installed
// transport, which may be nil.
func (c *Client) getConn() *transport.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	for c.connecting {
		c.connCond.Wait()
	}
	return c.conn
}

func (c *Client) closeStale(conn *transport.Conn) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		c.logger.Debug("Discarded transport close failed", "error", err)
	}
}

// beginEpoch resets the correlation sequence for a fresh connection. The
// pending table is not carried over; replies can only belong to commands
// sent on the connection that produced them.
func (c *Client) beginEpoch() {
	c.mu.Lock()
	c.cmdID = 0
	c.pending = make(map[string]*pendingCommand)
	c.mu.Unlock()
}

func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.recordState(s)
}

// SetRoom points the client at a different room. When connected, the
// client drops the current session and joins the new room immediately.
func (c *Client) SetRoom(ctx context.Context, room string) error {
	if room == "" {
		return nil
	}
	c.mu.Lock()
	c.cfg.Room = room
	c.mu.Unlock()
	c.roomLabel.Store(room)

	if c.getConn() == nil {
		return nil
	}
	return c.reconnect(ctx, "room-change")
}

// SetNick changes the configured nickname and, when connected, asks the
// server to adopt it right away. It returns the id of the nick command, or
// "" when nothing needed to be sent.
func (c *Client) SetNick(ctx context.Context, nick string) (string, error) {
	c.mu.Lock()
	c.cfg.Nick = nick
	c.mu.Unlock()
	return c.announceNick(ctx)
}

// SetPasscode stores the room passcode and, when connected, presents it to
// the server right away.
func (c *Client) SetPasscode(ctx context.Context, passcode string) (string, error) {
	c.mu.Lock()
	c.cfg.Passcode = passcode
	c.mu.Unlock()
	if c.getConn() == nil {
		return "", nil
	}
	return c.Authenticate(ctx)
}

func (c *Client) metricsRoom() string {
	room, _ := c.roomLabel.Load().(string)
	return room
}

func (c *Client) recordState(s State) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordEndpointStatus(c.metricsRoom(), int(s))
}

func (c *Client) recordConnect(outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordConnectAttempt(c.metricsRoom(), outcome)
}

func (c *Client) recordReconnect(cause string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordReconnect(c.metricsRoom(), cause)
}

func (c *Client) recordFrameSent(frameType string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordFrameSent(c.metricsRoom(), frameType)
}

func (c *Client) recordFrameReceived(frameType string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordFrameReceived(c.metricsRoom(), frameType)
}

func (c *Client) recordError(kind string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordError(c.metricsRoom(), kind)
}

func (c *Client) recordRosterSize(n int) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordRosterSize(c.metricsRoom(), n)
}

func (c *Client) recordLogSize(n int) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordLogSize(c.metricsRoom(), n)
}
