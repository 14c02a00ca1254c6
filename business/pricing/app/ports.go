// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sumitrevolt/flasharb/business/pricing/domain"
	"github.com/sumitrevolt/flasharb/internal/venue"
)

// VenueQuoter defines the interface for on-chain venue price quoters.
type VenueQuoter interface {
	// Venue returns the venue this quoter serves.
	Venue() *venue.Venue

	// GetQuote retrieves an exact-input quote for swapping tokens.
	GetQuote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*domain.Quote, error)
}

// SpotPriceSource defines the interface for off-chain USD reference prices.
type SpotPriceSource interface {
	// SpotUSD returns the latest USD spot price for a symbol (e.g., "ETHUSDT").
	SpotUSD(ctx context.Context, symbol string) (domain.SpotPrice, error)
}
