// Package domain contains the core domain types for the pricing context.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sumitrevolt/flasharb/internal/asset"
)

// Pair represents a trading pair using typed assets.
type Pair struct {
	Base  *asset.Asset // e.g., WETH
	Quote *asset.Asset // e.g., USDC
}

// NewPair creates a new trading pair.
func NewPair(base, quote *asset.Asset) Pair {
	if base == nil || quote == nil {
		panic("pricing: nil asset in pair")
	}
	return Pair{Base: base, Quote: quote}
}

// String returns the pair symbol (e.g., "WETH-USDC").
func (p Pair) String() string {
	return p.Base.Symbol() + "-" + p.Quote.Symbol()
}

// Invert returns the inverted pair (e.g., WETH-USDC -> USDC-WETH).
func (p Pair) Invert() Pair {
	return Pair{Base: p.Quote, Quote: p.Base}
}

// SpotPrice is a USD reference price from an off-chain feed. It is used for
// converting on-chain amounts to USD, never for trade decisions.
type SpotPrice struct {
	Symbol    string // e.g., "ETHUSDT"
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Timestamp time.Time
}

// Mid returns the mid price between bid and ask.
func (s SpotPrice) Mid() decimal.Decimal {
	return s.Bid.Add(s.Ask).Div(decimal.NewFromInt(2))
}

// Age returns how old the observation is.
func (s SpotPrice) Age() time.Duration {
	return time.Since(s.Timestamp)
}

// Quote represents an on-chain venue quote for an exact-input swap.
type Quote struct {
	VenueID     string
	TokenIn     *asset.Asset
	TokenOut    *asset.Asset
	AmountIn    asset.Amount
	AmountOut   asset.Amount
	Price       asset.Price // Effective price (AmountOut/AmountIn adjusted)
	GasEstimate uint64
	FeeTier     int // Fee tier in hundredths of a bip (e.g., 3000 = 0.30%)
	Timestamp   time.Time
}

// FeeTierPercent returns the fee tier as a percentage string (e.g., "0.30%").
func (q Quote) FeeTierPercent() string {
	percent := float64(q.FeeTier) / 10000.0
	return fmt.Sprintf("%.2f%%", percent)
}

// Age returns how old the quote is.
func (q Quote) Age() time.Duration {
	return time.Since(q.Timestamp)
}

// NewQuote creates a new venue quote.
func NewQuote(venueID string, tokenIn, tokenOut *asset.Asset, amountIn, amountOut asset.Amount, gasEstimate uint64, feeTier int) Quote {
	// Calculate effective price
	rate := decimal.Zero
	if !amountIn.IsZero() {
		rate = amountOut.ToDecimal().Div(amountIn.ToDecimal())
	}
	price := asset.NewPriceNow(tokenIn, tokenOut, rate)

	return Quote{
		VenueID:     venueID,
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		Price:       price,
		GasEstimate: gasEstimate,
		FeeTier:     feeTier,
		Timestamp:   time.Now(),
	}
}
