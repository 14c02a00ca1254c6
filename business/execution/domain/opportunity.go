// Package domain contains the core domain types for the execution context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Opportunity is a candidate flash-loan arbitrage handed to the execution
// engine: borrow AmountIn of TokenIn, buy TokenOut on BuyVenue, sell it back
// on SellVenue, repay the loan, keep the difference.
type Opportunity struct {
	ID             string
	TokenIn        common.Address // borrowed asset
	TokenOut       common.Address // intermediate asset
	TokenInSymbol  string
	TokenOutSymbol string
	BuyVenue       string
	SellVenue      string
	AmountIn       *big.Int // in TokenIn's smallest unit

	// ExpectedProfit is the detector's estimate in TokenIn units; the
	// engine treats it as a hint, never as realized profit.
	ExpectedProfit decimal.Decimal

	DetectedAt time.Time
}

// NewOpportunity creates an Opportunity with a fresh ID.
func NewOpportunity(tokenIn, tokenOut common.Address, tokenInSymbol, tokenOutSymbol, buyVenue, sellVenue string, amountIn *big.Int, expectedProfit decimal.Decimal) *Opportunity {
	return &Opportunity{
		ID:             uuid.NewString(),
		TokenIn:        tokenIn,
		TokenOut:       tokenOut,
		TokenInSymbol:  tokenInSymbol,
		TokenOutSymbol: tokenOutSymbol,
		BuyVenue:       buyVenue,
		SellVenue:      sellVenue,
		AmountIn:       new(big.Int).Set(amountIn),
		ExpectedProfit: expectedProfit,
		DetectedAt:     time.Now(),
	}
}
