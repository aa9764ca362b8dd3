package ws

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cloudsync/cloudsync/internal/model"
)

// Handler receives every notification pushed over the feed. Handlers run
// synchronously on the read loop, in subscription order.
type Handler func(model.Notification)

// ConnState is the connection lifecycle state.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateClosed
)

const (
	defaultBaseDelay   = 3 * time.Second
	defaultMaxAttempts = 5
	eventBufferSize    = 64
)

// handlerEntry pairs a handler with a registration id so unsubscribe can
// remove exactly the handler it was issued for.
type handlerEntry struct {
	id int
	fn Handler
}

// Client maintains the single live notification feed for the current
// session. After an unexpected close it redials with linear backoff
// (3s, 6s, 9s, 12s, 15s) and gives up after five failed attempts until
// Connect is called again. Subscriptions survive internal reconnects;
// only Disconnect clears them.
type Client struct {
	feedURL     string
	dialer      *websocket.Dialer
	baseDelay   time.Duration
	maxAttempts int

	mu             sync.Mutex
	conn           *websocket.Conn
	state          ConnState
	token          string
	attempts       int
	intentional    bool
	reconnectTimer *time.Timer
	handlers       []handlerEntry
	nextHandlerID  int

	events chan model.Notification
}

// New creates a Client for the given feed URL (e.g. ws://host:8084/ws).
func New(feedURL string) *Client {
	return &Client{
		feedURL: feedURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		baseDelay:   defaultBaseDelay,
		maxAttempts: defaultMaxAttempts,
		state:       StateIdle,
		events:      make(chan model.Notification, eventBufferSize),
	}
}

// Connect opens the feed carrying token as a query credential. It is a
// no-op when the connection is already open. Calling Connect after the
// reconnect budget is exhausted starts over with a fresh budget.
func (c *Client) Connect(token string) error {
	c.mu.Lock()
	if c.state == StateOpen {
		c.mu.Unlock()
		return nil
	}
	c.intentional = false
	c.token = token
	c.attempts = 0
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	return c.dial()
}

// Disconnect marks the close as intentional, cancels any pending
// reconnect, closes the connection, clears all subscriptions, and resets
// the attempt counter. This is the only path that clears handlers. The
// event channel is closed so a pump blocked on Events observes the end
// of the session, and a fresh channel is armed for the next Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.intentional = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.state = StateIdle
	c.handlers = nil
	c.attempts = 0
	close(c.events)
	c.events = make(chan model.Notification, eventBufferSize)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}
}

// Subscribe registers a handler for every inbound notification and
// returns its unsubscribe function. Unsubscribing twice is a no-op.
func (c *Client) Subscribe(h Handler) func() {
	c.mu.Lock()
	c.nextHandlerID++
	id := c.nextHandlerID
	c.handlers = append(c.handlers, handlerEntry{id: id, fn: h})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, entry := range c.handlers {
			if entry.id == id {
				c.handlers = append(c.handlers[:i], c.handlers[i+1:]...)
				return
			}
		}
	}
}

// IsConnected reports whether the underlying connection is currently open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateOpen
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Events exposes the feed as a channel for the UI event pump. Events are
// dropped rather than blocking the read loop when the buffer is full.
// The channel closes on Disconnect; each Connect cycle gets a fresh one.
func (c *Client) Events() <-chan model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// dial performs one connection attempt. Failure follows the same path as
// an unexpected close so the backoff policy applies uniformly.
func (c *Client) dial() error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	conn, resp, err := c.dialer.Dial(c.endpoint(token), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.handleClose()
		return fmt.Errorf("dialing notification feed: %w", err)
	}

	c.mu.Lock()
	if c.intentional {
		// Disconnect won the race; drop the fresh connection.
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.state = StateOpen
	c.attempts = 0
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// endpoint builds the dial URL with the token as a query credential.
func (c *Client) endpoint(token string) string {
	return c.feedURL + "?token=" + url.QueryEscape(token)
}

// readLoop reads frames until the connection dies. Malformed frames are
// dropped without disturbing the connection.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var n model.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			continue
		}
		c.dispatch(n)
	}

	c.mu.Lock()
	if c.conn != conn {
		// A newer connection already replaced this one (or Disconnect
		// detached it); nothing to recover.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateClosed
	c.mu.Unlock()

	c.handleClose()
}

// dispatch delivers one notification to every subscriber in order and to
// the event channel. A panicking handler must not stop delivery to the
// rest or corrupt the connection.
func (c *Client) dispatch(n model.Notification) {
	c.mu.Lock()
	snapshot := make([]handlerEntry, len(c.handlers))
	copy(snapshot, c.handlers)
	// Send while holding the lock so Disconnect cannot close the channel
	// underneath a send.
	select {
	case c.events <- n:
	default:
	}
	c.mu.Unlock()

	for _, entry := range snapshot {
		func() {
			defer func() { _ = recover() }()
			entry.fn(n)
		}()
	}
}

// handleClose applies the reconnect policy after an unexpected close or a
// failed dial: linear backoff until the attempt budget is spent, then stay
// closed until an external Connect.
func (c *Client) handleClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.intentional {
		return
	}
	if c.attempts >= c.maxAttempts {
		c.state = StateClosed
		return
	}

	c.attempts++
	delay := c.baseDelay * time.Duration(c.attempts)
	c.state = StateConnecting
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		if c.intentional {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		_ = c.dial()
	})
}
