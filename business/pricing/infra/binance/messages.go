// Package binance implements the SpotPriceSource interface against the
// Binance public market data streams.
package binance

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// WebSocket request/response messages

// WSRequest is a WebSocket subscription request.
type WSRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params,omitempty"`
	ID     int64    `json:"id"`
}

// WSResponse is a WebSocket subscription response.
type WSResponse struct {
	Result json.RawMessage `json:"result"`
	ID     int64           `json:"id"`
}

// StreamEvent is the base wrapper for all combined-stream messages.
type StreamEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// BookTickerEvent represents best bid/ask update (real-time).
// Stream: <symbol>@bookTicker
type BookTickerEvent struct {
	UpdateID int64  `json:"u"` // Order book updateId
	Symbol   string `json:"s"` // Symbol
	BidPrice string `json:"b"` // Best bid price
	BidQty   string `json:"B"` // Best bid qty
	AskPrice string `json:"a"` // Best ask price
	AskQty   string `json:"A"` // Best ask qty
}

// ParseBidPrice parses the best bid price.
func (e *BookTickerEvent) ParseBidPrice() (decimal.Decimal, error) {
	return decimal.NewFromString(e.BidPrice)
}

// ParseAskPrice parses the best ask price.
func (e *BookTickerEvent) ParseAskPrice() (decimal.Decimal, error) {
	return decimal.NewFromString(e.AskPrice)
}

// BookTickerStream returns the bookTicker stream name for a symbol.
func BookTickerStream(symbol string) string {
	return lowercase(symbol) + "@bookTicker"
}

func lowercase(s string) string {
	// Simple ASCII lowercase for symbols
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 32
		}
	}
	return string(b)
}
