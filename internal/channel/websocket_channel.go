package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"askyourdocs-client/internal/auth"
	"askyourdocs-client/internal/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024

	sendBuffer    = 16
	receiveBuffer = 16
)

var (
	// ErrNotOpen is returned by Send when the channel state is not Open.
	ErrNotOpen = errors.New("channel is not open")

	// ErrSpent is returned by Open on a channel that has already been
	// through its lifecycle. Build a fresh one instead.
	ErrSpent = errors.New("channel already used, create a new one")

	errSendBufferFull = errors.New("channel send buffer full")
)

// Conn is the subset of the websocket connection the channel drives.
// Tests substitute a scripted fake.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Dialer opens the underlying websocket connection.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (Conn, error)
}

type gorillaDialer struct {
	dialer *websocket.Dialer
}

func (g gorillaDialer) DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (Conn, error) {
	conn, _, err := g.dialer.DialContext(ctx, urlStr, requestHeader)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// WebsocketChannel is a client-side duplex channel to the /ws/query
// endpoint. The auth token travels as a query parameter, matching the
// backend handshake.
type WebsocketChannel struct {
	url    string
	creds  auth.CredentialProvider
	dialer Dialer
	log    logger.ILogger

	mu         sync.Mutex
	state      State
	conn       Conn
	spent      bool
	userClosed bool

	send     chan []byte
	messages chan []byte
	done     chan CloseEvent
	stop     chan struct{}

	finishOnce sync.Once
}

// NewWebsocketChannel builds an unopened channel. A nil dialer selects the
// default gorilla dialer.
func NewWebsocketChannel(wsURL string, creds auth.CredentialProvider, dialer Dialer, log logger.ILogger) *WebsocketChannel {
	if dialer == nil {
		dialer = gorillaDialer{dialer: websocket.DefaultDialer}
	}
	return &WebsocketChannel{
		url:      wsURL,
		creds:    creds,
		dialer:   dialer,
		log:      log,
		state:    StateClosed,
		send:     make(chan []byte, sendBuffer),
		messages: make(chan []byte, receiveBuffer),
		done:     make(chan CloseEvent, 1),
		stop:     make(chan struct{}),
	}
}

// Open dials the backend and resolves once the channel is Open. Calling
// Open on an already-open channel is a no-op.
func (c *WebsocketChannel) Open(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.state == StateOpen:
		c.mu.Unlock()
		return nil
	case c.state == StateConnecting || c.state == StateClosing:
		c.mu.Unlock()
		return fmt.Errorf("channel busy in state %s", c.state)
	case c.spent:
		c.mu.Unlock()
		return ErrSpent
	}
	c.state = StateConnecting
	c.spent = true
	c.mu.Unlock()

	token, err := c.creds.Token(ctx)
	if err != nil {
		c.abortConnect()
		return fmt.Errorf("resolve auth token: %w", err)
	}

	conn, err := c.dialer.DialContext(ctx, c.url+"?token="+url.QueryEscape(token), nil)
	if err != nil {
		c.abortConnect()
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	// Close() may have run while the dial was in flight. The close wins:
	// drop the fresh connection instead of resurrecting the channel.
	if c.userClosed || c.state != StateConnecting {
		c.mu.Unlock()
		conn.Close()
		return ErrNotOpen
	}
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()

	c.log.Info("Channel", "Channel open", map[string]interface{}{"url": c.url})
	return nil
}

// Send queues a payload for the writer. Fails with ErrNotOpen unless the
// channel is Open; it never queues across a reconnect.
func (c *WebsocketChannel) Send(payload []byte) error {
	c.mu.Lock()
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open {
		return ErrNotOpen
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return errSendBufferFull
	}
}

// Close tears the channel down. Idempotent, safe on a never-opened or
// already-closed channel.
func (c *WebsocketChannel) Close() {
	c.mu.Lock()
	if c.state == StateClosed && c.conn == nil {
		// Fresh or already fully closed without a live conn.
		c.spent = true
		c.state = StateClosed
		c.mu.Unlock()
		c.finish(CloseEvent{UserInitiated: true})
		return
	}
	if c.state == StateClosing || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.userClosed = true
	c.state = StateClosing
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
	c.finish(CloseEvent{UserInitiated: true})
}

func (c *WebsocketChannel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Messages delivers raw inbound answer payloads.
func (c *WebsocketChannel) Messages() <-chan []byte {
	return c.messages
}

// Done emits exactly one CloseEvent when the channel dies.
func (c *WebsocketChannel) Done() <-chan CloseEvent {
	return c.done
}

func (c *WebsocketChannel) abortConnect() {
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
}

// readPump pumps messages from the websocket into the Messages channel.
func (c *WebsocketChannel) readPump() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			user := c.userClosed
			c.mu.Unlock()
			if !user {
				c.log.Warn("Channel", "Connection dropped", map[string]interface{}{"error": err.Error()})
				c.finish(CloseEvent{UserInitiated: false, Err: err})
			}
			return
		}
		select {
		case c.messages <- data:
		case <-c.stop:
			return
		}
	}
}

// writePump pumps queued payloads onto the wire and keeps the connection
// alive with pings.
func (c *WebsocketChannel) writePump() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.stop:
			return
		}
	}
}

// finish moves the channel to its final Closed state and emits the single
// close event. Runs at most once.
func (c *WebsocketChannel) finish(event CloseEvent) {
	c.finishOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		conn := c.conn
		c.mu.Unlock()

		if conn != nil {
			conn.Close()
		}
		close(c.stop)
		c.done <- event
	})
}
