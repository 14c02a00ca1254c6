// Package wsconn provides a reconnecting WebSocket client built on
// github.com/coder/websocket.
package wsconn

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/sumitrevolt/flasharb/internal/apperror"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string // label for logs/errors
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ReadLimit      int64 // max message size in bytes
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0, // infinite
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadLimit:      1 << 20,
	}
}

// MessageHandler receives every inbound message.
type MessageHandler func(ctx context.Context, data []byte)

// Client is a WebSocket client that reconnects with exponential backoff and
// delivers inbound messages to a registered handler.
type Client struct {
	config Config

	conn   *websocket.Conn
	connMu sync.RWMutex

	handler   MessageHandler
	handlerMu sync.RWMutex

	state      State
	stateMu    sync.RWMutex
	reconnects atomic.Int32
	closed     atomic.Bool
	done       chan struct{}
}

// New creates a new WebSocket client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("wsconn: empty URL"))
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}

	return &Client{
		config: cfg,
		state:  StateDisconnected,
		done:   make(chan struct{}),
	}, nil
}

// OnMessage registers the inbound message handler. Must be called before
// Connect; messages arriving with no handler are dropped.
func (c *Client) OnMessage(handler MessageHandler) {
	c.handlerMu.Lock()
	c.handler = handler
	c.handlerMu.Unlock()
}

// Connect dials the endpoint once and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	dialCtx := ctx
	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}

	conn, _, err := websocket.Dial(dialCtx, c.config.URL, nil)
	if err != nil {
		c.setState(StateDisconnected)
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s: dial %s", c.config.Name, c.config.URL)))
	}
	if c.config.ReadLimit > 0 {
		conn.SetReadLimit(c.config.ReadLimit)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.setState(StateConnected)

	go c.readLoop(ctx)

	return nil
}

// ConnectWithRetry dials the endpoint, retrying with exponential backoff and
// jitter until connected, the context is cancelled, or MaxReconnects is hit.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	backoff := c.config.InitialBackoff

	for attempt := 0; ; attempt++ {
		if c.config.MaxReconnects > 0 && attempt >= c.config.MaxReconnects {
			return apperror.New(apperror.CodeWebSocketConnectionError,
				apperror.WithContext(fmt.Sprintf("%s: gave up after %d attempts", c.config.Name, attempt)))
		}

		err := c.Connect(ctx)
		if err == nil {
			return nil
		}

		c.setState(StateReconnecting)
		c.reconnects.Add(1)

		jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return apperror.New(apperror.CodeWebSocketClosed,
				apperror.WithContext(c.config.Name))
		case <-time.After(backoff + jitter):
		}

		backoff *= 2
		if backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}
}

// Send writes a text message to the connection.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithContext(fmt.Sprintf("%s: not connected", c.config.Name)))
	}

	writeCtx := ctx
	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}

	if err := conn.Write(writeCtx, websocket.MessageText, msg); err != nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name))
	}
	return nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether the connection is established.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Reconnects returns how many reconnect attempts have been made.
func (c *Client) Reconnects() int {
	return int(c.reconnects.Load())
}

// Close gracefully closes the connection and stops the read loop.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	c.setState(StateDisconnected)

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	return nil
}

// readLoop reads messages until the connection drops, then reconnects
// unless the client was closed.
func (c *Client) readLoop(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		c.connMu.RLock()
		conn := c.conn
		c.connMu.RUnlock()
		if conn == nil {
			return
		}

		readCtx := ctx
		var cancel context.CancelFunc
		if c.config.ReadTimeout > 0 {
			readCtx, cancel = context.WithTimeout(ctx, c.config.ReadTimeout)
		}

		_, data, err := conn.Read(readCtx)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			if c.closed.Load() || ctx.Err() != nil {
				return
			}
			c.setState(StateReconnecting)
			if rerr := c.ConnectWithRetry(ctx); rerr != nil {
				c.setState(StateDisconnected)
				return
			}
			// The new connection started its own read loop.
			return
		}

		c.handlerMu.RLock()
		handler := c.handler
		c.handlerMu.RUnlock()
		if handler != nil {
			handler(ctx, data)
		}
	}
}

func (c *Client) setState(state State) {
	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()
}
