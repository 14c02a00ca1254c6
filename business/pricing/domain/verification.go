package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Verification is the result of re-quoting an opportunity at decision time.
// Execution proceeds only when Passed is true; any doubt fails closed.
type Verification struct {
	BuyQuote   Quote
	SellQuote  Quote
	Spread     Spread
	Passed     bool
	Reason     string // empty when Passed
	VerifiedAt time.Time
}

// NewVerification evaluates the two legs against a minimum live spread.
func NewVerification(buy, sell Quote, minSpreadPct decimal.Decimal) Verification {
	spread := CalculateSpread(buy.AmountIn.ToDecimal(), sell.AmountOut.ToDecimal())

	v := Verification{
		BuyQuote:   buy,
		SellQuote:  sell,
		Spread:     spread,
		VerifiedAt: time.Now(),
	}

	if spread.Percent.LessThan(minSpreadPct) {
		v.Reason = "live spread " + spread.Percent.StringFixed(4) + "% below minimum " + minSpreadPct.String() + "%"
		return v
	}

	v.Passed = true
	return v
}
