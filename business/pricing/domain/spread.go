// Package domain contains the core domain types for the pricing context.
package domain

import "github.com/shopspring/decimal"

// Spread represents the round-trip price difference between two venues for
// the same asset: buy on one venue, sell the proceeds on the other.
type Spread struct {
	AmountIn  decimal.Decimal // amount spent on the buy leg
	AmountOut decimal.Decimal // amount recovered from the sell leg
	Absolute  decimal.Decimal // AmountOut - AmountIn
	Percent   decimal.Decimal // (AmountOut - AmountIn) / AmountIn * 100
	Direction SpreadDirection
}

// SpreadDirection indicates whether the round trip gains or loses.
type SpreadDirection string

const (
	SpreadProfitable SpreadDirection = "PROFITABLE" // round trip returns more than it spends
	SpreadLosing     SpreadDirection = "LOSING"     // round trip returns less than it spends
	SpreadFlat       SpreadDirection = "FLAT"
)

// CalculateSpread computes the round-trip spread from the amount spent on the
// buy leg and the amount recovered from the sell leg, both in the borrowed
// asset's units.
func CalculateSpread(amountIn, amountOut decimal.Decimal) Spread {
	absolute := amountOut.Sub(amountIn)
	pct := decimal.Zero
	if !amountIn.IsZero() {
		pct = absolute.Div(amountIn).Mul(decimal.NewFromInt(100))
	}

	var direction SpreadDirection
	switch {
	case absolute.IsPositive():
		direction = SpreadProfitable
	case absolute.IsNegative():
		direction = SpreadLosing
	default:
		direction = SpreadFlat
	}

	return Spread{
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Absolute:  absolute,
		Percent:   pct,
		Direction: direction,
	}
}

// BasisPoints returns the spread in basis points.
func (s Spread) BasisPoints() decimal.Decimal {
	return s.Percent.Mul(decimal.NewFromInt(100))
}
