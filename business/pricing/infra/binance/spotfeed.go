package binance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sumitrevolt/flasharb/business/pricing/app"
	"github.com/sumitrevolt/flasharb/business/pricing/domain"
	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/cache"
	"github.com/sumitrevolt/flasharb/internal/logger"
)

// Ensure SpotFeed implements SpotPriceSource.
var _ app.SpotPriceSource = (*SpotFeed)(nil)

// SpotFeed serves USD reference prices. The WebSocket stream keeps a TTL
// cache warm; when the cache is cold or expired the REST API is queried
// directly. USD prices are reporting-only and never drive trade decisions.
type SpotFeed struct {
	stream *Client // nil = REST only
	rest   *HTTPClient
	prices *cache.Cache[string, domain.SpotPrice]
	ttl    time.Duration
	logger logger.LoggerInterface
}

// NewSpotFeed creates a spot feed over the given stream and REST clients.
func NewSpotFeed(stream *Client, rest *HTTPClient, ttl time.Duration, log logger.LoggerInterface) *SpotFeed {
	f := &SpotFeed{
		stream: stream,
		rest:   rest,
		prices: cache.New[string, domain.SpotPrice](5 * time.Minute),
		ttl:    ttl,
		logger: log,
	}

	if stream != nil {
		stream.OnBookTicker(f.handleTicker)
	}

	return f
}

// Start connects the WebSocket stream. REST fallback works without it.
func (f *SpotFeed) Start(ctx context.Context) error {
	if f.stream == nil {
		return nil
	}
	return f.stream.Connect(ctx)
}

// handleTicker stores each stream update in the cache.
func (f *SpotFeed) handleTicker(e *BookTickerEvent) {
	ctx := context.Background()

	bid, err := e.ParseBidPrice()
	if err != nil {
		f.logger.Warn(ctx, "bad bid price in ticker", "symbol", e.Symbol, "error", err)
		return
	}
	ask, err := e.ParseAskPrice()
	if err != nil {
		f.logger.Warn(ctx, "bad ask price in ticker", "symbol", e.Symbol, "error", err)
		return
	}

	f.prices.Set(ctx, e.Symbol, domain.SpotPrice{
		Symbol:    e.Symbol,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now(),
	}, f.ttl)
}

// usdPairFor maps a token symbol to the exchange's USD-quoted pair. Stables
// are their own dollar; callers may also pass an exchange pair directly.
var usdPairFor = map[string]string{
	"ETH":  "ETHUSDT",
	"WETH": "ETHUSDT",
	"BTC":  "BTCUSDT",
	"WBTC": "BTCUSDT",
}

// stableSymbols are pegged 1:1 and never hit the exchange.
var stableSymbols = map[string]struct{}{
	"USD": {}, "USDT": {}, "USDC": {}, "DAI": {}, "BUSD": {}, "FRAX": {},
}

// SpotUSD returns the latest USD spot price for a token symbol or exchange
// pair, falling back to the REST API when the cached stream price is missing
// or expired.
func (f *SpotFeed) SpotUSD(ctx context.Context, symbol string) (domain.SpotPrice, error) {
	if _, ok := stableSymbols[symbol]; ok {
		one := decimal.NewFromInt(1)
		return domain.SpotPrice{Symbol: symbol, Bid: one, Ask: one, Timestamp: time.Now()}, nil
	}
	if pair, ok := usdPairFor[symbol]; ok {
		symbol = pair
	}

	if price, ok := f.prices.Get(ctx, symbol); ok {
		return price, nil
	}

	if f.rest == nil {
		return domain.SpotPrice{}, apperror.New(apperror.CodePriceFeedError,
			apperror.WithContext("no cached price and no REST fallback for "+symbol))
	}

	resp, err := f.rest.GetBookTicker(ctx, symbol)
	if err != nil {
		return domain.SpotPrice{}, err
	}

	f.handleTicker(resp.ToEvent())

	price, ok := f.prices.Get(ctx, symbol)
	if !ok {
		return domain.SpotPrice{}, apperror.New(apperror.CodePriceFeedError,
			apperror.WithContext("REST response unparsable for "+symbol))
	}

	f.logger.Debug(ctx, "spot price via REST fallback", "symbol", symbol)
	return price, nil
}

// Close releases the stream connection and cache.
func (f *SpotFeed) Close() error {
	f.prices.Close()
	if f.stream != nil {
		return f.stream.Close()
	}
	return nil
}
