// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/sumitrevolt/flasharb/business/pricing/domain"
)

// PricingService coordinates decision-time verification and USD conversion.
type PricingService struct {
	verifier *Verifier
	spot     SpotPriceSource
}

// NewPricingService creates a new PricingService.
func NewPricingService(verifier *Verifier, spot SpotPriceSource) *PricingService {
	return &PricingService{
		verifier: verifier,
		spot:     spot,
	}
}

// Verify re-quotes both legs of an opportunity at decision time.
func (s *PricingService) Verify(ctx context.Context, buyVenueID, sellVenueID string, tokenIn, tokenOut common.Address, amountIn *big.Int) (*domain.Verification, error) {
	return s.verifier.Verify(ctx, buyVenueID, sellVenueID, tokenIn, tokenOut, amountIn)
}

// SpotUSD returns the latest USD reference price for a symbol. USD values are
// reporting-only; trade decisions use on-chain quotes exclusively.
func (s *PricingService) SpotUSD(ctx context.Context, symbol string) (domain.SpotPrice, error) {
	return s.spot.SpotUSD(ctx, symbol)
}

// ToUSD converts a token amount to USD using the spot feed. Returns zero when
// no reference price is available rather than failing the caller.
func (s *PricingService) ToUSD(ctx context.Context, amount decimal.Decimal, symbol string) decimal.Decimal {
	price, err := s.spot.SpotUSD(ctx, symbol)
	if err != nil {
		return decimal.Zero
	}
	return amount.Mul(price.Mid())
}
