package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/logger"
	"github.com/sumitrevolt/flasharb/internal/wsconn"
)

const (
	tracerName = "flasharb/binance"
	meterName  = "flasharb/binance"

	// Binance WebSocket endpoints
	BaseWSURL     = "wss://stream.binance.com:9443"
	DataStreamURL = "wss://data-stream.binance.vision"

	// Keep-alive interval (Binance requires message every 3 min)
	keepAliveInterval = 2 * time.Minute
)

// ClientConfig holds configuration for the Binance stream client.
type ClientConfig struct {
	BaseURL      string        // WebSocket base URL
	Symbols      []string      // Symbols to subscribe (e.g., "ETHUSDT")
	ReadTimeout  time.Duration // Read timeout
	WriteTimeout time.Duration // Write timeout
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(symbols []string) ClientConfig {
	return ClientConfig{
		BaseURL:      BaseWSURL,
		Symbols:      symbols,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// clientMetrics holds OTEL metric instruments.
type clientMetrics struct {
	messagesReceived metric.Int64Counter
	tickerUpdates    metric.Int64Counter
	subscriptions    metric.Int64UpDownCounter
	parseErrors      metric.Int64Counter
}

// Client streams best bid/ask updates from Binance over WebSocket.
type Client struct {
	config ClientConfig
	logger logger.LoggerInterface

	conn   *wsconn.Client
	connMu sync.RWMutex

	onBookTicker func(*BookTickerEvent)
	handlersMu   sync.RWMutex

	subscriptions map[string]struct{}
	subsMu        sync.RWMutex
	nextID        atomic.Int64

	stopKeepAlive chan struct{}

	tracer  trace.Tracer
	metrics *clientMetrics

	running atomic.Bool
}

// NewClient creates a new Binance stream client.
func NewClient(cfg ClientConfig, log logger.LoggerInterface) (*Client, error) {
	c := &Client{
		config:        cfg,
		logger:        log,
		subscriptions: make(map[string]struct{}),
		stopKeepAlive: make(chan struct{}),
		tracer:        otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.messagesReceived, err = meter.Int64Counter(
		"binance_messages_total",
		metric.WithDescription("Total messages received"),
	)
	if err != nil {
		return err
	}

	c.metrics.tickerUpdates, err = meter.Int64Counter(
		"binance_ticker_updates_total",
		metric.WithDescription("Total book ticker updates received"),
	)
	if err != nil {
		return err
	}

	c.metrics.subscriptions, err = meter.Int64UpDownCounter(
		"binance_subscriptions",
		metric.WithDescription("Active subscriptions"),
	)
	if err != nil {
		return err
	}

	c.metrics.parseErrors, err = meter.Int64Counter(
		"binance_parse_errors_total",
		metric.WithDescription("Message parse errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// OnBookTicker registers a handler for book ticker events.
func (c *Client) OnBookTicker(handler func(*BookTickerEvent)) {
	c.handlersMu.Lock()
	c.onBookTicker = handler
	c.handlersMu.Unlock()
}

// Connect establishes the WebSocket connection and subscribes to the
// bookTicker stream for every configured symbol.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "binance.connect",
		trace.WithAttributes(
			attribute.StringSlice("symbols", c.config.Symbols),
		),
	)
	defer span.End()

	wsURL, err := c.buildStreamURL()
	if err != nil {
		return err
	}

	wsCfg := wsconn.DefaultConfig(wsURL, "binance")
	wsCfg.ReadTimeout = c.config.ReadTimeout
	wsCfg.WriteTimeout = c.config.WriteTimeout

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return apperror.New(apperror.CodePriceFeedError,
			apperror.WithCause(err),
			apperror.WithContext("failed to create wsconn"))
	}

	conn.OnMessage(c.handleMessage)

	if err := conn.ConnectWithRetry(ctx); err != nil {
		return apperror.New(apperror.CodePriceFeedError,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect to Binance"))
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	// Mark streams as subscribed (combined URL auto-subscribes)
	c.subsMu.Lock()
	for _, sym := range c.config.Symbols {
		c.subscriptions[BookTickerStream(sym)] = struct{}{}
	}
	c.subsMu.Unlock()

	c.metrics.subscriptions.Add(ctx, int64(len(c.config.Symbols)))

	c.running.Store(true)
	go c.keepAlive(ctx)

	c.logger.Info(ctx, "binance stream connected",
		"url", wsURL,
		"symbols", c.config.Symbols)

	return nil
}

// buildStreamURL constructs the combined streams WebSocket URL.
func (c *Client) buildStreamURL() (string, error) {
	if len(c.config.Symbols) == 0 {
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("no symbols configured"))
	}

	streams := make([]string, 0, len(c.config.Symbols))
	for _, sym := range c.config.Symbols {
		streams = append(streams, BookTickerStream(sym))
	}

	// Combined streams URL: /stream?streams=stream1/stream2/...
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")

	return u.String(), nil
}

// handleMessage processes incoming WebSocket messages.
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	c.metrics.messagesReceived.Add(ctx, 1)

	var event StreamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		// Might be a subscription response
		var resp WSResponse
		if json.Unmarshal(data, &resp) == nil {
			c.logger.Debug(ctx, "subscription response received")
			return
		}
		c.metrics.parseErrors.Add(ctx, 1)
		c.logger.Debug(ctx, "failed to parse message", "error", err)
		return
	}

	if !strings.HasSuffix(event.Stream, "@bookTicker") {
		return
	}

	var ticker BookTickerEvent
	if err := json.Unmarshal(event.Data, &ticker); err != nil {
		c.metrics.parseErrors.Add(ctx, 1)
		return
	}
	c.metrics.tickerUpdates.Add(ctx, 1)

	c.handlersMu.RLock()
	handler := c.onBookTicker
	c.handlersMu.RUnlock()
	if handler != nil {
		handler(&ticker)
	}
}

// Subscribe adds a new subscription (if connected).
func (c *Client) Subscribe(ctx context.Context, streams ...string) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil {
		return apperror.New(apperror.CodePriceFeedError,
			apperror.WithContext("not connected"))
	}

	req := WSRequest{
		Method: "SUBSCRIBE",
		Params: streams,
		ID:     c.nextID.Add(1),
	}

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	if err := conn.Send(ctx, data); err != nil {
		return apperror.New(apperror.CodePriceFeedError,
			apperror.WithCause(err),
			apperror.WithContext("failed to subscribe"))
	}

	c.subsMu.Lock()
	for _, s := range streams {
		c.subscriptions[s] = struct{}{}
	}
	c.subsMu.Unlock()

	c.metrics.subscriptions.Add(ctx, int64(len(streams)))

	return nil
}

// keepAlive sends periodic pings to keep the connection alive.
func (c *Client) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopKeepAlive:
			return
		case <-ticker.C:
			if !c.running.Load() {
				return
			}

			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()

			if conn != nil {
				req := WSRequest{
					Method: "LIST_SUBSCRIPTIONS",
					ID:     c.nextID.Add(1),
				}
				data, _ := json.Marshal(req)
				if err := conn.Send(ctx, data); err != nil {
					c.logger.Warn(ctx, "keep-alive failed", "error", err)
				}
			}
		}
	}
}

// Close closes the client connection.
func (c *Client) Close() error {
	c.running.Store(false)
	close(c.stopKeepAlive)

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}
