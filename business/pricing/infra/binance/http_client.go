package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/httpclient"
	"github.com/sumitrevolt/flasharb/internal/logger"
)

const (
	// Binance REST API endpoints
	BaseAPIURL = "https://api.binance.com"

	bookTickerEndpoint = "/api/v3/ticker/bookTicker"

	// Default HTTP client settings
	httpTimeout = 10 * time.Second
)

// HTTPClientConfig holds configuration for the Binance HTTP client.
type HTTPClientConfig struct {
	BaseURL string        // API base URL (empty = default)
	Timeout time.Duration // Request timeout
}

// DefaultHTTPClientConfig returns sensible defaults.
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		BaseURL: BaseAPIURL,
		Timeout: httpTimeout,
	}
}

// HTTPClient provides Binance REST API access for fallback scenarios.
type HTTPClient struct {
	client httpclient.Client
	config HTTPClientConfig
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewHTTPClient creates a new Binance HTTP client.
func NewHTTPClient(cfg HTTPClientConfig, log logger.LoggerInterface) (*HTTPClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &HTTPClient{
		client: client,
		config: cfg,
		logger: log,
		tracer: tracer,
	}, nil
}

// BookTickerResponse is the REST API response for the best bid/ask.
type BookTickerResponse struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	BidQty   string `json:"bidQty"`
	AskPrice string `json:"askPrice"`
	AskQty   string `json:"askQty"`
}

// GetBookTicker fetches the best bid/ask for a symbol via REST API.
// This is used as a fallback when WebSocket data is stale or unavailable.
func (c *HTTPClient) GetBookTicker(ctx context.Context, symbol string) (*BookTickerResponse, error) {
	ctx, span := c.tracer.Start(ctx, "binance.http.get_book_ticker",
		trace.WithAttributes(attribute.String("symbol", symbol)),
	)
	defer span.End()

	var result BookTickerResponse
	resp, err := c.client.NewRequestWithOptions(
		httpclient.WithLabels(
			httpclient.NewLabel("endpoint", "book_ticker"),
			httpclient.NewLabel("symbol", symbol),
		),
		httpclient.WithResponseErrorHandler(binanceErrorHandler),
	).
		SetQueryParam("symbol", symbol).
		SetResult(&result).
		Get(ctx, bookTickerEndpoint)

	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodePriceFeedError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch book ticker from REST API"))
	}

	if resp.IsError() {
		return nil, apperror.New(apperror.CodePriceFeedError,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	span.SetAttributes(
		attribute.String("bid", result.BidPrice),
		attribute.String("ask", result.AskPrice),
	)

	c.logger.Debug(ctx, "fetched book ticker via HTTP",
		"symbol", symbol,
		"bid", result.BidPrice,
		"ask", result.AskPrice)

	return &result, nil
}

// ToEvent converts a REST response to the stream event shape so both paths
// feed the same handler.
func (r *BookTickerResponse) ToEvent() *BookTickerEvent {
	return &BookTickerEvent{
		Symbol:   r.Symbol,
		BidPrice: r.BidPrice,
		BidQty:   r.BidQty,
		AskPrice: r.AskPrice,
		AskQty:   r.AskQty,
	}
}

// BinanceAPIError represents an error response from Binance API.
type BinanceAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *BinanceAPIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

// binanceErrorHandler parses Binance API error responses.
func binanceErrorHandler(statusCode int, body []byte) error {
	if statusCode >= 400 {
		var apiErr BinanceAPIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
			return &apiErr
		}
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}
	return nil
}
