package progress

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/attunefin/attune-go/errors"
)

// State is the client-owned connection state. Exactly one value holds at a
// time; it is not server data.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateError        State = "error"
)

// Default tuning values for the progress stream client.
const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectBaseDelay   = 2 * time.Second
	DefaultPingInterval         = 30 * time.Second

	// reconnectBackoffFactor grows the delay between consecutive automatic
	// retries: base * 1.5^(attempt-1).
	reconnectBackoffFactor = 1.5
)

// Keepalive frames exchanged with the server. Inbound "pong" is dropped
// silently, never surfaced as an event.
const (
	pingFrame = "ping"
	pongFrame = "pong"
)

// User-visible error messages recorded in the client's Err() state.
const (
	ErrMsgConnection   = "WebSocket connection error"
	ErrMsgParse        = "Failed to parse progress message"
	ErrMsgAuthRejected = "Authentication failed. Please refresh the page."
)

// closeCodeUnknown marks a read failure that carried no close frame
// (dial failures, torn TCP connections).
const closeCodeUnknown = -1

// Options configures a Client. JobID and AuthToken are required, together
// with either Resolver or BaseURL.
type Options struct {
	JobID     string
	AuthToken string

	// BaseURL of the Attune backend, e.g. "https://app.attune.fin".
	// Ignored when Resolver is set.
	BaseURL string
	// Resolver overrides endpoint construction (headless tests, proxies).
	Resolver EndpointResolver

	// Handler receives progress callbacks. Optional; observable state is
	// maintained either way.
	Handler EventHandler

	// AutoReconnect enables retries after unexpected closure. Default true.
	AutoReconnect *bool
	// MaxReconnectAttempts is the retry budget. 0 disables retries even
	// with AutoReconnect set. Nil means DefaultMaxReconnectAttempts.
	MaxReconnectAttempts *int
	// ReconnectBaseDelay is the backoff base. Zero means
	// DefaultReconnectBaseDelay.
	ReconnectBaseDelay time.Duration
	// PingInterval is the keepalive cadence while connected. Zero means
	// DefaultPingInterval.
	PingInterval time.Duration

	Dialer Dialer
	Clock  Clock
	Logger *zap.SugaredLogger
}

// Client maintains one logical subscription to a job's progress stream.
//
// All three control operations return immediately; effects are observed via
// the handler and the readable state. None of them panic or return errors
// for expected failure modes — faults surface through OnError and Err().
type Client struct {
	handler       EventHandler
	dialer        Dialer
	clock         Clock
	resolve       EndpointResolver
	logger        *zap.SugaredLogger
	autoReconnect bool
	maxAttempts   int
	baseDelay     time.Duration
	pingInterval  time.Duration

	mu        sync.Mutex
	jobID     string
	token     string
	state     State
	lastEvent *Event
	lastErr   string
	attempts  int
	conn      Conn
	// gen identifies the current connection generation. Every Connect,
	// Disconnect and identity change bumps it; stale read loops, dials and
	// retry timers compare their captured value and bail out.
	gen        int
	retryTimer Timer
	pingTicker Ticker
	pingDone   chan struct{}

	// writeMu serializes WriteMessage calls on the current socket. Gorilla
	// connections support only one concurrent writer; the keepalive goroutine
	// and the teardown close frame share this lock.
	writeMu sync.Mutex
}

// NewClient creates a progress stream client. No connection is attempted
// until Connect runs.
func NewClient(opts Options) (*Client, error) {
	if opts.JobID == "" {
		return nil, errors.New("progress: job ID is required")
	}
	if opts.AuthToken == "" {
		return nil, errors.New("progress: auth token is required")
	}
	resolve := opts.Resolver
	if resolve == nil {
		if opts.BaseURL == "" {
			return nil, errors.New("progress: base URL or resolver is required")
		}
		resolve = Endpoint(opts.BaseURL)
	}

	c := &Client{
		handler:       opts.Handler,
		dialer:        opts.Dialer,
		clock:         opts.Clock,
		resolve:       resolve,
		logger:        opts.Logger,
		autoReconnect: true,
		maxAttempts:   DefaultMaxReconnectAttempts,
		baseDelay:     DefaultReconnectBaseDelay,
		pingInterval:  DefaultPingInterval,
		jobID:         opts.JobID,
		token:         opts.AuthToken,
		state:         StateDisconnected,
	}
	if opts.AutoReconnect != nil {
		c.autoReconnect = *opts.AutoReconnect
	}
	if opts.MaxReconnectAttempts != nil {
		c.maxAttempts = *opts.MaxReconnectAttempts
	}
	if opts.ReconnectBaseDelay > 0 {
		c.baseDelay = opts.ReconnectBaseDelay
	}
	if opts.PingInterval > 0 {
		c.pingInterval = opts.PingInterval
	}
	if c.dialer == nil {
		c.dialer = NewDialer()
	}
	if c.clock == nil {
		c.clock = NewClock()
	}
	if c.logger == nil {
		c.logger = zap.NewNop().Sugar()
	}
	return c, nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the stream is currently open.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// LastEvent returns the most recent event, or nil before the first push.
func (c *Client) LastEvent() *Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEvent
}

// Err returns the most recent error message, or "" when the last frame
// parsed cleanly and no fault is outstanding.
func (c *Client) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// RetryPending reports whether an automatic reconnect is scheduled. While
// it is true the stream reads as disconnected but will come back on its own.
func (c *Client) RetryPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryTimer != nil
}

// JobID returns the currently subscribed job.
func (c *Client) JobID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobID
}

// Connect (re)establishes the stream, closing any existing connection
// first. Calling it explicitly resets the retry budget; automatic retries
// go through their own path and do not.
func (c *Client) Connect() {
	c.mu.Lock()
	c.attempts = 0
	c.teardownLocked()
	c.gen++
	gen := c.gen
	c.setStateLocked(StateConnecting)
	rawURL := c.resolve(c.jobID, c.token)
	c.mu.Unlock()

	go c.dial(gen, rawURL)
}

// Reconnect is a caller-initiated manual retry: the attempt counter resets
// to zero and a fresh connection is established.
func (c *Client) Reconnect() {
	c.Connect()
}

// Disconnect closes the stream for good: the retry budget is exhausted so
// no scheduled retry can fire, all timers stop, and the socket closes with
// a normal-closure reason. Connect is required to resume. Safe to call
// repeatedly.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.attempts = c.maxAttempts
	c.gen++
	c.teardownLocked()
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()
}

// SetSubscription switches the (jobID, authToken) identity. If a
// connection is active or being established, the old one is torn down and
// a new one targets the new identity; events from the old job never reach
// the handler after the switch.
func (c *Client) SetSubscription(jobID, authToken string) {
	c.mu.Lock()
	changed := jobID != c.jobID || authToken != c.token
	c.jobID = jobID
	c.token = authToken
	active := c.state == StateConnected || c.state == StateConnecting
	c.mu.Unlock()

	if changed && active {
		c.Connect()
	}
}

// teardownLocked stops timers and closes the current socket with a normal
// closure frame. Callers hold c.mu.
func (c *Client) teardownLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.stopKeepaliveLocked()
	if c.conn != nil {
		conn := c.conn
		c.conn = nil
		c.writeMu.Lock()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"))
		c.writeMu.Unlock()
		conn.Close()
	}
}

func (c *Client) setStateLocked(s State) {
	c.state = s
}

func (c *Client) dial(gen int, rawURL string) {
	conn, err := c.dialer.Dial(context.Background(), rawURL)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.lastErr = ErrMsgConnection
		c.setStateLocked(StateError)
		handler := c.handler
		jobID := c.jobID
		c.mu.Unlock()

		c.logger.Warnw("Progress stream dial failed",
			"job_id", jobID,
			"error", err,
		)
		if handler != nil {
			handler.OnError(errors.Wrap(err, ErrMsgConnection))
		}
		c.finishClose(gen, closeCodeUnknown)
		return
	}

	c.conn = conn
	c.attempts = 0
	c.setStateLocked(StateConnected)
	c.startKeepaliveLocked(conn)
	jobID := c.jobID
	c.mu.Unlock()

	c.logger.Debugw("Progress stream connected", "job_id", jobID)
	go c.readLoop(gen, conn)
}

func (c *Client) readLoop(gen int, conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(gen, err)
			return
		}
		c.handleFrame(gen, data)
	}
}

// handleReadError maps a failed read to the error/close transitions. A
// transport-level fault is recorded and surfaced before the close handler
// runs; clean closes (normal closure, auth rejection) go straight to it.
func (c *Client) handleReadError(gen int, err error) {
	code := closeCodeUnknown
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		code = ce.Code
	}

	if code != websocket.CloseNormalClosure && code != websocket.ClosePolicyViolation {
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.lastErr = ErrMsgConnection
		c.setStateLocked(StateError)
		handler := c.handler
		jobID := c.jobID
		c.mu.Unlock()

		c.logger.Warnw("Progress stream read error",
			"job_id", jobID,
			"close_code", code,
			"error", err,
		)
		if handler != nil {
			handler.OnError(errors.Wrap(err, ErrMsgConnection))
		}
	}

	c.finishClose(gen, code)
}

// finishClose runs the close transition: auth rejections suppress retries
// permanently, normal closure stays down, anything else schedules a backoff
// retry while budget remains.
func (c *Client) finishClose(gen int, code int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.stopKeepaliveLocked()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	var notifyErr error
	switch {
	case code == websocket.ClosePolicyViolation:
		c.lastErr = ErrMsgAuthRejected
		c.attempts = c.maxAttempts
		c.setStateLocked(StateDisconnected)
		notifyErr = errors.New(ErrMsgAuthRejected)

	case c.autoReconnect && c.attempts < c.maxAttempts && code != websocket.CloseNormalClosure:
		c.attempts++
		attempt := c.attempts
		delay := backoffDelay(c.baseDelay, attempt)
		c.setStateLocked(StateDisconnected)
		c.retryTimer = c.clock.AfterFunc(delay, func() { c.retryFire(gen) })
		c.logger.Infow("Scheduling progress stream reconnect",
			"job_id", c.jobID,
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"delay", delay,
		)

	default:
		c.setStateLocked(StateDisconnected)
	}
	handler := c.handler
	c.mu.Unlock()

	if notifyErr != nil && handler != nil {
		handler.OnError(notifyErr)
	}
}

// retryFire is the automatic-retry path. Unlike Connect it leaves the
// attempt counter alone, and it aborts when a Connect or Disconnect has
// superseded the generation that scheduled it.
func (c *Client) retryFire(gen int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.retryTimer = nil
	c.gen++
	newGen := c.gen
	c.setStateLocked(StateConnecting)
	rawURL := c.resolve(c.jobID, c.token)
	c.mu.Unlock()

	c.dial(newGen, rawURL)
}

// backoffDelay returns base * 1.5^(attempt-1).
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return time.Duration(float64(base) * math.Pow(reconnectBackoffFactor, float64(attempt-1)))
}

func (c *Client) handleFrame(gen int, data []byte) {
	// Keepalive reply: dropped silently, never surfaced as an event.
	if string(data) == pongFrame {
		return
	}

	ev, parseErr := parseEvent(data)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	handler := c.handler

	if parseErr != nil {
		// Parse failure does not close the connection and leaves the last
		// good event in place.
		c.lastErr = ErrMsgParse
		jobID := c.jobID
		c.mu.Unlock()

		c.logger.Warnw("Discarding unparseable progress frame",
			"job_id", jobID,
			"error", parseErr,
		)
		if handler != nil {
			handler.OnError(errors.Wrap(parseErr, ErrMsgParse))
		}
		return
	}

	c.lastEvent = ev
	c.lastErr = ""
	var jobErr error
	if ev.Status == StatusError && ev.Error != "" {
		c.lastErr = "Upload failed: " + ev.Error
		jobErr = errors.Newf("Upload failed: %s", ev.Error)
	}
	c.mu.Unlock()

	if handler == nil {
		return
	}
	handler.OnProgress(ev)
	if ev.Status == StatusCompleted {
		handler.OnComplete(ev)
	}
	if jobErr != nil {
		handler.OnError(jobErr)
	}
}

// startKeepaliveLocked begins the periodic ping while connected. Callers
// hold c.mu. The loop stops when the ticker is stopped or a write fails;
// a failed write is left for the read loop to report. Each ping takes
// writeMu so it never runs inside WriteMessage at the same time as the
// teardown close frame.
func (c *Client) startKeepaliveLocked(conn Conn) {
	ticker := c.clock.NewTicker(c.pingInterval)
	done := make(chan struct{})
	c.pingTicker = ticker
	c.pingDone = done

	go func() {
		for {
			select {
			case <-done:
				return
			case _, ok := <-ticker.C():
				if !ok {
					return
				}
				c.writeMu.Lock()
				err := conn.WriteMessage(websocket.TextMessage, []byte(pingFrame))
				c.writeMu.Unlock()
				if err != nil {
					c.logger.Debugw("Keepalive ping failed", "error", err)
					return
				}
			}
		}
	}()
}

// stopKeepaliveLocked clears the keepalive interval. Callers hold c.mu.
func (c *Client) stopKeepaliveLocked() {
	if c.pingTicker != nil {
		c.pingTicker.Stop()
		c.pingTicker = nil
	}
	if c.pingDone != nil {
		close(c.pingDone)
		c.pingDone = nil
	}
}
