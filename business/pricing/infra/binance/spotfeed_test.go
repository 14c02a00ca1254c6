package binance

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(nil, logger.LevelError, "test", nil)
}

func TestSpotFeedServesStreamPrices(t *testing.T) {
	feed := NewSpotFeed(nil, nil, time.Minute, testLogger())
	defer feed.Close()

	feed.handleTicker(&BookTickerEvent{
		Symbol:   "ETHUSDT",
		BidPrice: "3000.10",
		AskPrice: "3000.30",
	})

	price, err := feed.SpotUSD(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("SpotUSD() error = %v", err)
	}
	if !price.Bid.Equal(decimal.RequireFromString("3000.10")) {
		t.Errorf("Bid = %s", price.Bid)
	}
	if !price.Mid().Equal(decimal.RequireFromString("3000.20")) {
		t.Errorf("Mid() = %s", price.Mid())
	}
}

func TestSpotFeedNoFallbackConfigured(t *testing.T) {
	feed := NewSpotFeed(nil, nil, time.Minute, testLogger())
	defer feed.Close()

	_, err := feed.SpotUSD(context.Background(), "ETHUSDT")
	if err == nil {
		t.Fatal("expected error for cold cache without REST fallback")
	}
	if apperror.GetCode(err) != apperror.CodePriceFeedError {
		t.Errorf("GetCode() = %v, want %v", apperror.GetCode(err), apperror.CodePriceFeedError)
	}
}

func TestSpotFeedIgnoresBadTicker(t *testing.T) {
	feed := NewSpotFeed(nil, nil, time.Minute, testLogger())
	defer feed.Close()

	feed.handleTicker(&BookTickerEvent{
		Symbol:   "ETHUSDT",
		BidPrice: "not-a-number",
		AskPrice: "3000.30",
	})

	if _, err := feed.SpotUSD(context.Background(), "ETHUSDT"); err == nil {
		t.Error("bad ticker should not populate the cache")
	}
}

func TestSpotFeedExpiry(t *testing.T) {
	feed := NewSpotFeed(nil, nil, 10*time.Millisecond, testLogger())
	defer feed.Close()

	feed.handleTicker(&BookTickerEvent{
		Symbol:   "ETHUSDT",
		BidPrice: "3000",
		AskPrice: "3001",
	})

	time.Sleep(30 * time.Millisecond)

	if _, err := feed.SpotUSD(context.Background(), "ETHUSDT"); err == nil {
		t.Error("expired price should not be served without REST fallback")
	}
}

func TestBookTickerStream(t *testing.T) {
	if got := BookTickerStream("ETHUSDT"); got != "ethusdt@bookTicker" {
		t.Errorf("BookTickerStream() = %q", got)
	}
}

func TestBookTickerResponseToEvent(t *testing.T) {
	resp := &BookTickerResponse{
		Symbol:   "WBTCUSDT",
		BidPrice: "64000.5",
		AskPrice: "64001.0",
	}

	e := resp.ToEvent()
	if e.Symbol != "WBTCUSDT" || e.BidPrice != "64000.5" || e.AskPrice != "64001.0" {
		t.Errorf("ToEvent() = %+v", e)
	}
}

func TestSpotFeedMapsTokenSymbols(t *testing.T) {
	feed := NewSpotFeed(nil, nil, time.Minute, testLogger())
	defer feed.Close()

	feed.handleTicker(&BookTickerEvent{
		Symbol:   "ETHUSDT",
		BidPrice: "3000.00",
		AskPrice: "3000.00",
	})

	// Token symbols resolve to their USD-quoted exchange pair.
	price, err := feed.SpotUSD(context.Background(), "WETH")
	if err != nil {
		t.Fatalf("SpotUSD(WETH) error = %v", err)
	}
	if !price.Mid().Equal(decimal.RequireFromString("3000")) {
		t.Errorf("Mid() = %s, want 3000", price.Mid())
	}
}

func TestSpotFeedStablesAreOneDollar(t *testing.T) {
	feed := NewSpotFeed(nil, nil, time.Minute, testLogger())
	defer feed.Close()

	for _, symbol := range []string{"USDC", "USDT", "DAI"} {
		price, err := feed.SpotUSD(context.Background(), symbol)
		if err != nil {
			t.Fatalf("SpotUSD(%s) error = %v", symbol, err)
		}
		if !price.Mid().Equal(decimal.NewFromInt(1)) {
			t.Errorf("Mid(%s) = %s, want 1", symbol, price.Mid())
		}
	}
}
